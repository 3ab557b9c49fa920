package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/internal/mapper"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
)

// Gateway keeps profiles in the profiles table, keyed by the auth user id.
type Gateway struct {
	tables gateway.TableStore
	logger logger.Logger
}

func NewGateway(tables gateway.TableStore, log logger.Logger) *Gateway {
	return &Gateway{
		tables: tables,
		logger: log.WithComponent("ProfileService"),
	}
}

var _ Service = (*Gateway)(nil)

func (g *Gateway) Fetch(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	rows, err := g.tables.Select(ctx, gateway.TableProfiles, gateway.Query{
		Eq:    map[string]any{mapper.ColID: userID.String()},
		Limit: 1,
	})
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			g.logger.Debug("Profile does not exist", "user_id", userID)
			return nil, nil
		}
		g.logger.Error("Failed to fetch profile", "user_id", userID, "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		g.logger.Debug("Profile does not exist", "user_id", userID)
		return nil, nil
	}

	p, err := mapper.DecodeProfile(rows[0])
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (g *Gateway) Create(ctx context.Context, userID uuid.UUID, changes Changes) (domain.Profile, error) {
	rec := mapper.EncodeProfile(domain.Profile{
		ID:        userID,
		Nickname:  changes.Nickname,
		AvatarURL: changes.AvatarURL,
	})

	row, err := g.tables.Insert(ctx, gateway.TableProfiles, rec)
	if err != nil {
		g.logger.Error("Failed to create profile", "user_id", userID, "error", err)
		return domain.Profile{}, err
	}

	p, err := mapper.DecodeProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	g.logger.Info("Profile created", "user_id", userID)
	return p, nil
}

func (g *Gateway) Update(ctx context.Context, userID uuid.UUID, changes Changes) (domain.Profile, error) {
	if changes.Empty() {
		return domain.Profile{}, ErrNothingToUpdate
	}

	fields := gateway.Record{}
	if changes.Nickname != nil {
		fields[mapper.ColNickname] = *changes.Nickname
	}
	if changes.AvatarURL != nil {
		fields[mapper.ColAvatarURL] = *changes.AvatarURL
	}

	row, err := g.tables.Update(ctx, gateway.TableProfiles, userID.String(), fields)
	if err != nil {
		g.logger.Error("Failed to update profile", "user_id", userID, "error", err)
		return domain.Profile{}, err
	}

	p, err := mapper.DecodeProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	g.logger.Info("Profile updated", "user_id", userID)
	return p, nil
}

func (g *Gateway) GetOrCreate(ctx context.Context, userID uuid.UUID, changes Changes) (domain.Profile, error) {
	p, err := g.Fetch(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if p != nil {
		return *p, nil
	}
	return g.Create(ctx, userID, changes)
}
