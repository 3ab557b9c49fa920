// Package session tracks who is signed in and the profile shown for them.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/internal/prefs"
	"github.com/xkdemo/moments/internal/profile"
	"github.com/xkdemo/moments/pkg/config"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
	"github.com/xkdemo/moments/pkg/observable"
	"github.com/xkdemo/moments/pkg/retry"
	"go.uber.org/fx"
)

const (
	metaNickname = "nickname"
	metaFullName = "full_name"
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrNotSignedIn   = errors.New("not signed in")
)

type State struct {
	LoggedIn  bool
	UserID    string
	Email     string
	Nickname  string
	AvatarURL string
}

func (s State) snapshot() prefs.Snapshot {
	return prefs.Snapshot{
		LoggedIn:      s.LoggedIn,
		UserID:        s.UserID,
		UserEmail:     s.Email,
		UserNickname:  s.Nickname,
		UserAvatarURL: s.AvatarURL,
	}
}

func fromSnapshot(s prefs.Snapshot) State {
	return State{
		LoggedIn:  s.LoggedIn,
		UserID:    s.UserID,
		Email:     s.UserEmail,
		Nickname:  s.UserNickname,
		AvatarURL: s.UserAvatarURL,
	}
}

type Opts struct {
	fx.In

	Auth     gateway.Auth
	Profiles profile.Service
	Prefs    prefs.Store
	Objects  gateway.ObjectStore
	Media    *media.Policy
	Logger   logger.Logger
	Config   *config.Config
}

type Manager struct {
	auth     gateway.Auth
	profiles profile.Service
	prefs    prefs.Store
	objects  gateway.ObjectStore
	media    *media.Policy
	logger   logger.Logger
	bucket   string
	retry    retry.Config

	state *observable.Store[State]
}

func New(opts Opts) *Manager {
	retryCfg := retry.DefaultConfig()
	retryCfg.Retryable = pkgerrors.IsNetwork

	return &Manager{
		auth:     opts.Auth,
		profiles: opts.Profiles,
		prefs:    opts.Prefs,
		objects:  opts.Objects,
		media:    opts.Media,
		logger:   opts.Logger.WithComponent("SessionManager"),
		bucket:   opts.Config.Storage.Bucket,
		retry:    retryCfg,
		state:    observable.New(State{}),
	}
}

func (m *Manager) State() State {
	return m.state.Get()
}

func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.state.Subscribe(fn)
}

// Bootstrap shows the cached user right away and then confirms it with a session check.
func (m *Manager) Bootstrap(ctx context.Context) error {
	snap, err := m.prefs.Load(ctx)
	if err != nil {
		m.logger.Warn("Failed to load cached session", "error", err)
	} else {
		m.state.Set(fromSnapshot(snap))
	}
	return m.CheckSession(ctx)
}

// CheckSession asks the auth gateway for the current session. Connectivity failures
// are retried. Any failure signs the user out locally, cached copy included.
func (m *Manager) CheckSession(ctx context.Context) error {
	var sess domain.Session
	err := retry.Do(ctx, m.logger, "check session", func() error {
		var err error
		sess, err = m.auth.CurrentSession(ctx)
		return err
	}, m.retry)
	if err != nil {
		m.clear(ctx)
		if errors.Is(err, gateway.ErrNotAuthenticated) {
			m.logger.Debug("No active session")
			return nil
		}
		m.logger.Error("Session check failed", "error", err)
		return err
	}

	m.state.Update(func(s State) State {
		s.LoggedIn = true
		s.UserID = sess.User.ID
		return s
	})
	m.loadUserInfo(ctx, sess.User)
	return nil
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (State, error) {
	sess, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		m.logger.Warn("Sign in failed", "email", email, "error", err)
		return State{}, err
	}

	userEmail := sess.User.Email
	if userEmail == "" {
		userEmail = email
	}
	m.publish(func(s State) State {
		s.LoggedIn = true
		s.UserID = sess.User.ID
		s.Email = userEmail
		return s
	})
	m.loadUserInfo(ctx, sess.User)

	m.logger.Info("Signed in", "user_id", sess.User.ID)
	return m.State(), nil
}

// SignUp registers the account and creates its profile. A failed profile creation
// does not fail the sign up; the nickname from the form is used instead.
func (m *Manager) SignUp(ctx context.Context, email, password, nickname string) (State, error) {
	user, err := m.auth.SignUp(ctx, email, password, gateway.Metadata{
		metaNickname: nickname,
		metaFullName: nickname,
	})
	if err != nil {
		m.logger.Warn("Sign up failed", "email", email, "error", err)
		return State{}, err
	}

	next := State{
		LoggedIn: true,
		UserID:   user.ID,
		Email:    email,
		Nickname: nickname,
	}

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		m.logger.Error("Auth returned an invalid user id", "user_id", user.ID, "error", err)
	} else {
		p, err := m.profiles.Create(ctx, userID, profile.Changes{Nickname: &nickname})
		if err != nil {
			m.logger.Warn("Profile creation failed, keeping basic info", "user_id", user.ID, "error", err)
		} else {
			if p.Nickname != nil {
				next.Nickname = *p.Nickname
			}
			if p.AvatarURL != nil {
				next.AvatarURL = *p.AvatarURL
			}
		}
	}

	m.publish(func(State) State { return next })
	m.logger.Info("Signed up", "user_id", user.ID)
	return next, nil
}

// SignOut clears local state only after the gateway accepted the sign out.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		m.logger.Error("Sign out failed", "error", err)
		return err
	}

	m.clear(ctx)
	m.logger.Info("Signed out")
	return nil
}

func (m *Manager) UpdateProfile(ctx context.Context, changes profile.Changes) (State, error) {
	userID, err := m.currentUserID()
	if err != nil {
		return State{}, err
	}

	p, err := m.profiles.Update(ctx, userID, changes)
	if err != nil {
		return State{}, err
	}

	m.publish(func(s State) State {
		if p.Nickname != nil {
			s.Nickname = *p.Nickname
		}
		if p.AvatarURL != nil {
			s.AvatarURL = *p.AvatarURL
		}
		return s
	})
	return m.State(), nil
}

// UpdateAvatar stores the image under the avatars prefix and points the profile at it.
func (m *Manager) UpdateAvatar(ctx context.Context, img media.Image) (State, error) {
	userID, err := m.currentUserID()
	if err != nil {
		return State{}, err
	}

	img, err = m.media.Validate(img)
	if err != nil {
		return State{}, err
	}

	path := m.media.AvatarPath(userID.String(), img)
	if err := m.objects.Upload(ctx, m.bucket, path, img.Data, img.ContentType); err != nil {
		m.logger.Error("Failed to upload avatar", "user_id", userID, "error", err)
		return State{}, fmt.Errorf("upload avatar: %w", err)
	}

	url := m.objects.PublicURL(m.bucket, path)
	return m.UpdateProfile(ctx, profile.Changes{AvatarURL: &url})
}

func (m *Manager) currentUserID() (uuid.UUID, error) {
	s := m.State()
	if !s.LoggedIn {
		return uuid.Nil, ErrNotSignedIn
	}
	id, err := uuid.Parse(s.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidUserID, s.UserID)
	}
	return id, nil
}

// loadUserInfo refreshes email, nickname and avatar. Failures are logged and the
// cached values stay.
func (m *Manager) loadUserInfo(ctx context.Context, sessUser domain.User) {
	userID, err := uuid.Parse(sessUser.ID)
	if err != nil {
		m.logger.Error("Invalid user id in session", "user_id", sessUser.ID, "error", err)
		return
	}

	user, err := m.auth.User(ctx)
	if err != nil {
		m.logger.Warn("Failed to load user", "user_id", userID, "error", err)
		m.publish(func(s State) State { return s })
		return
	}

	p, err := m.profiles.Fetch(ctx, userID)
	if err == nil && p == nil {
		var created domain.Profile
		created, err = m.profiles.GetOrCreate(ctx, userID, profile.Changes{Nickname: metadataNickname(user.Metadata)})
		p = &created
	}
	if err != nil {
		m.logger.Warn("Failed to load profile", "user_id", userID, "error", err)
	}

	m.publish(func(s State) State {
		if user.Email != "" {
			s.Email = user.Email
		}
		if nickname := resolveNickname(p, user.Metadata); nickname != "" {
			s.Nickname = nickname
		}
		if p != nil && p.AvatarURL != nil && *p.AvatarURL != "" {
			s.AvatarURL = *p.AvatarURL
		}
		return s
	})
}

// clear drops the signed-in user from the state and from prefs.
func (m *Manager) clear(ctx context.Context) {
	m.state.Set(State{})
	if err := m.prefs.Clear(ctx); err != nil {
		m.logger.Warn("Failed to clear cached session", "error", err)
	}
}

// publish updates the state and writes it through to prefs.
func (m *Manager) publish(fn func(State) State) {
	next := m.state.Update(fn)
	if err := m.prefs.Save(context.Background(), next.snapshot()); err != nil {
		m.logger.Warn("Failed to cache session", "error", err)
	}
}

// resolveNickname prefers the profile, then the nickname given at sign up, then full_name.
func resolveNickname(p *domain.Profile, meta map[string]string) string {
	if p != nil && p.Nickname != nil && *p.Nickname != "" {
		return *p.Nickname
	}
	if n := metadataNickname(meta); n != nil {
		return *n
	}
	return ""
}

func metadataNickname(meta map[string]string) *string {
	for _, key := range []string{metaNickname, metaFullName} {
		if v, ok := meta[key]; ok && v != "" {
			return &v
		}
	}
	return nil
}
