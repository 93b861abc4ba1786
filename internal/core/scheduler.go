package core

// scheduler.go runs background maintenance jobs on a cron schedule.
//
// Currently implements audit log retention: entries older than the
// retention window are purged. A failed run is logged and retried at the
// next tick; it never stops the application.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the audit purge once a day at midnight.
const DefaultPurgeSchedule = "@daily"

// DefaultAuditRetentionDays is how long audit entries are kept.
const DefaultAuditRetentionDays = 365

// PurgeConfig holds configuration for the audit purge scheduler.
// Zero values fall back to the defaults above.
type PurgeConfig struct {
	RetentionDays int
	Schedule      string
}

// AuditPurgeScheduler purges expired audit entries on a cron schedule.
type AuditPurgeScheduler struct {
	cron   *cron.Cron
	svc    *Service
	cfg    PurgeConfig
	logger *slog.Logger
}

// NewAuditPurgeScheduler creates a scheduler for svc.
func NewAuditPurgeScheduler(svc *Service, cfg PurgeConfig, logger *slog.Logger) *AuditPurgeScheduler {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultPurgeSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditPurgeScheduler{
		cron:   cron.New(),
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the purge job and starts the scheduler. Jobs run with ctx,
// so cancelling it aborts a purge in flight.
func (s *AuditPurgeScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid audit purge schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("audit purge scheduler started",
		"schedule", s.cfg.Schedule,
		"retention_days", s.cfg.RetentionDays,
	)
	return nil
}

// Stop stops the scheduler and waits for a running purge to finish.
func (s *AuditPurgeScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("audit purge scheduler stopped")
}

// RunOnce performs one purge cycle.
func (s *AuditPurgeScheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	purged, err := s.svc.PurgeAuditLog(ctx, s.cfg.RetentionDays)
	if err != nil {
		s.logger.Error("audit purge failed", "error", err)
		return
	}
	s.logger.Info("purged audit log entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// PurgeAuditLog deletes audit entries older than retentionDays and records
// the purge itself in the audit log.
func (s *Service) PurgeAuditLog(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, ErrValidation("retention must be positive, got %d days", retentionDays)
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)

	purged, err := s.store.PurgeAuditEntries(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	if purged > 0 {
		s.logAuditBestEffort(ctx, AuditLogParams{
			Action:       ActionAuditPurge,
			RowsAffected: int(purged),
			Details:      map[string]any{"before": cutoff.Format(time.RFC3339)},
		})
	}
	return purged, nil
}
