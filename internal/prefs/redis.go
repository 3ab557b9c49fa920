package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/xkdemo/moments/pkg/logger"
)

const (
	fieldLoggedIn  = "logged_in"
	fieldUserID    = "user_id"
	fieldEmail     = "user_email"
	fieldNickname  = "user_nickname"
	fieldAvatarURL = "user_avatar_url"
)

// Redis stores the snapshot as a single hash.
type Redis struct {
	client *redis.Client
	key    string
	logger logger.Logger
}

func NewRedis(client *redis.Client, key string, log logger.Logger) *Redis {
	return &Redis{
		client: client,
		key:    key,
		logger: log.WithComponent("PrefsStore"),
	}
}

var _ Store = (*Redis)(nil)

func (r *Redis) Load(ctx context.Context) (Snapshot, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("load prefs: %w", err)
	}
	if len(values) == 0 {
		return Snapshot{}, nil
	}

	loggedIn, _ := strconv.ParseBool(values[fieldLoggedIn])
	return Snapshot{
		LoggedIn:      loggedIn,
		UserID:        values[fieldUserID],
		UserEmail:     values[fieldEmail],
		UserNickname:  values[fieldNickname],
		UserAvatarURL: values[fieldAvatarURL],
	}, nil
}

func (r *Redis) Save(ctx context.Context, s Snapshot) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	pipe.HSet(ctx, r.key,
		fieldLoggedIn, strconv.FormatBool(s.LoggedIn),
		fieldUserID, s.UserID,
		fieldEmail, s.UserEmail,
		fieldNickname, s.UserNickname,
		fieldAvatarURL, s.UserAvatarURL,
	)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save prefs", "error", err)
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		r.logger.Error("Failed to clear prefs", "error", err)
		return fmt.Errorf("clear prefs: %w", err)
	}
	return nil
}
