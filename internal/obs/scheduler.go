package obs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Reloader is the one operation the scheduler needs from the Template
// Store: refresh the whole catalog from its backing source.
type Reloader interface {
	ReloadAll(ctx context.Context) error
}

// TemplateReloadScheduler runs a periodic ReloadAll against a Reloader,
// acting as the fallback refresh path alongside the fsnotify watcher --
// useful when templates are edited directly in the database rather than on
// disk, or when a filesystem event is missed.
type TemplateReloadScheduler struct {
	cron     *cron.Cron
	reloader Reloader

	mu      sync.Mutex
	running bool
}

// NewTemplateReloadScheduler builds a scheduler with seconds-level
// resolution, matching the upstream task scheduler's cron configuration.
func NewTemplateReloadScheduler(reloader Reloader) *TemplateReloadScheduler {
	return &TemplateReloadScheduler{
		cron:     cron.New(cron.WithSeconds()),
		reloader: reloader,
	}
}

// Start schedules a reload every intervalSec seconds and starts the cron
// runner. It is an error to call Start twice without an intervening Stop.
func (s *TemplateReloadScheduler) Start(ctx context.Context, intervalSec int) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("template reload scheduler is already running")
	}
	s.running = true
	s.mu.Unlock()

	if intervalSec <= 0 {
		intervalSec = 300
	}

	spec := fmt.Sprintf("@every %ds", intervalSec)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.reloader.ReloadAll(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled template reload failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule template reload: %w", err)
	}

	s.cron.Start()
	log.Info().Int("interval_sec", intervalSec).Msg("template reload scheduler started")
	return nil
}

// Stop halts the cron runner, waiting for any in-flight reload to finish.
func (s *TemplateReloadScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	log.Info().Msg("template reload scheduler stopped")
}
