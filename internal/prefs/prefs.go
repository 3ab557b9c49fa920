// Package prefs keeps the last signed-in user so the UI can show it before the
// session check completes. It is a cache: a fresh session check always wins.
package prefs

import "context"

type Snapshot struct {
	LoggedIn      bool
	UserID        string
	UserEmail     string
	UserNickname  string
	UserAvatarURL string
}

type Store interface {
	// Load returns the zero Snapshot when nothing was saved
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
}
