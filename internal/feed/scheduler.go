package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/xkdemo/moments/pkg/logger"
)

// Loader is the part of the coordinator the scheduler drives.
type Loader interface {
	Load(ctx context.Context, trigger Trigger) (Result, error)
}

// Scheduler refreshes the feed in the background. A background load is an ordinary
// load, so a user refresh started meanwhile supersedes it.
type Scheduler struct {
	loader   Loader
	logger   logger.Logger
	interval time.Duration

	scheduler gocron.Scheduler
}

func NewScheduler(loader Loader, log logger.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		loader:   loader,
		logger:   log.WithComponent("FeedScheduler"),
		interval: interval,
	}
}

// Start schedules the refresh job. A non-positive interval disables it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("Background feed refresh disabled")
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create feed scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.logger.Info("Context cancelled, skipping background refresh")
				return
			}
			// Errors are already published to the feed state and logged by the coordinator.
			_, _ = s.loader.Load(ctx, TriggerBackground)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule feed refresh: %w", err)
	}

	s.scheduler = scheduler
	scheduler.Start()
	s.logger.Info("Background feed refresh scheduled", "interval", s.interval.String())
	return nil
}

func (s *Scheduler) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	s.logger.Info("Stopping feed scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down feed scheduler: %w", err)
	}
	return nil
}
