package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xkdemo/moments/pkg/logger"
)

// Config tunes the exponential backoff. MaxRetries counts retries, not attempts.
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// Retryable reports whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
	}
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.InitialInterval),
		backoff.WithMaxInterval(c.MaxInterval),
		backoff.WithMultiplier(c.Multiplier),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of retries or
// ctx is done. The last error is returned unchanged.
func Do(ctx context.Context, log logger.Logger, name string, op func() error, cfg Config) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil && cfg.Retryable != nil && !cfg.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotify(wrapped, cfg.backOff(ctx), func(err error, next time.Duration) {
		log.Warn("Operation failed, retrying",
			"operation", name,
			"attempt", attempt,
			"error", err,
			"next_attempt_in", next.Round(time.Millisecond).String(),
		)
	})
	if err != nil && attempt > 1 {
		log.Error("Operation failed after retries", "operation", name, "attempts", attempt, "error", err)
	}
	return err
}
