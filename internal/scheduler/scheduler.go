package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/ryanbeasley/odsa-app-sub000/config"
	"github.com/ryanbeasley/odsa-app-sub000/internal/service"
)

// Reporter receives the outcome of each background sync pass.
type Reporter interface {
	SyncReport(synced, skipped int, syncErr error)
}

// Scheduler runs the periodic inbound sync from Discord.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	sync     *service.SyncService
	reporter Reporter
}

func New(cfg *config.Config, syncSvc *service.SyncService) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		cfg:  cfg,
		sync: syncSvc,
	}
}

func (s *Scheduler) SetReporter(r Reporter) {
	s.reporter = r
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.SyncIntervalMinutes == 0 {
		log.Println("Periodic sync disabled")
		<-ctx.Done()
		return nil
	}

	spec := fmt.Sprintf("@every %dm", s.cfg.SyncIntervalMinutes)
	if _, err := s.cron.AddFunc(spec, s.runSync); err != nil {
		return fmt.Errorf("add sync job: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (sync every %dm)", s.cfg.SyncIntervalMinutes)

	// One immediate pass so a fresh deployment does not wait a full interval.
	s.runSync()

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runSync() {
	result, err := s.sync.SyncFromDiscord()
	if err != nil {
		log.Printf("Sync failed: %v", err)
		if s.reporter != nil {
			s.reporter.SyncReport(0, 0, err)
		}
		return
	}

	log.Printf("Sync complete: %d synced, %d skipped", result.Synced, result.Skipped)
	if s.reporter != nil {
		s.reporter.SyncReport(result.Synced, result.Skipped, nil)
	}
}
