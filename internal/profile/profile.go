package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/xkdemo/moments/internal/domain"
)

var ErrNothingToUpdate = errors.New("nothing to update")

// Changes lists the profile fields to set. Nil fields are left untouched.
type Changes struct {
	Nickname  *string
	AvatarURL *string
}

func (c Changes) Empty() bool {
	return c.Nickname == nil && c.AvatarURL == nil
}

//go:generate go run go.uber.org/mock/mockgen -source=profile.go -destination=mocks/mock.go

type Service interface {
	// Fetch returns nil, nil when the user has no profile yet
	Fetch(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	Create(ctx context.Context, userID uuid.UUID, changes Changes) (domain.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, changes Changes) (domain.Profile, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID, changes Changes) (domain.Profile, error)
}
