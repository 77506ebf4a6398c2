package services

import (
	"context"
	"time"

	"chefshelf/internal/logger"

	"github.com/go-co-op/gocron"
)

const syncJobTag = "local-to-remote-sync"

// SyncScheduler periodically pushes the local snapshot to the remote database.
type SyncScheduler struct {
	scheduler *gocron.Scheduler
	store     *RecipeStore
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(store *RecipeStore) *SyncScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &SyncScheduler{
		scheduler: s,
		store:     store,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the sync every interval and starts the scheduler. A zero
// interval or a store without a remote leaves the scheduler idle.
func (s *SyncScheduler) Start(interval time.Duration) error {
	if interval <= 0 || !s.store.HasRemote() {
		logger.Info("sync.disabled", "interval", interval.String(), "remote", s.store.HasRemote())
		return nil
	}

	_, err := s.scheduler.Every(interval).Tag(syncJobTag).Do(s.RunOnce)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Info("sync.scheduled", "interval", interval.String())
	return nil
}

// RunOnce performs a single sync pass.
func (s *SyncScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	synced, err := s.store.SyncLocalToRemote(ctx)
	if err != nil {
		logger.Warn("sync.failed", "error", err)
		return
	}
	logger.Info("sync.completed", "records", synced, "elapsed_ms", time.Since(start).Milliseconds())
}

// Stop stops the scheduler
func (s *SyncScheduler) Stop() {
	s.scheduler.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}
