// Package jobs runs periodic housekeeping. None of it is needed for
// correctness; it only reclaims space.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/logging"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	LogRetentionSchedule = "@daily"
	WindowEvictSchedule  = "@every 15m"

	jobTimeout = 2 * time.Minute
)

// WindowEvicter drops rate limit windows that started before cutoff.
type WindowEvicter interface {
	EvictExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type Housekeeping struct {
	cron         *cron.Cron
	db           *gorm.DB
	windows      WindowEvicter
	logRetention time.Duration
	rateWindow   time.Duration
	now          func() time.Time
}

func NewHousekeeping(db *gorm.DB, windows WindowEvicter, logRetention, rateWindow time.Duration) *Housekeeping {
	return &Housekeeping{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		db:           db,
		windows:      windows,
		logRetention: logRetention,
		rateWindow:   rateWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the jobs and starts the scheduler.
func (h *Housekeeping) Start() error {
	if h.logRetention > 0 {
		if _, err := h.cron.AddFunc(LogRetentionSchedule, func() { h.PurgeLogs(context.Background()) }); err != nil {
			return err
		}
	}
	if h.windows != nil {
		if _, err := h.cron.AddFunc(WindowEvictSchedule, func() { h.EvictWindows(context.Background()) }); err != nil {
			return err
		}
	}
	h.cron.Start()
	slog.Info("housekeeping started", "jobs", len(h.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish.
func (h *Housekeeping) Stop() {
	<-h.cron.Stop().Done()
}

func (h *Housekeeping) PurgeLogs(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	deleted, err := logging.PurgeSystemLogs(ctx, h.db, h.logRetention, h.now())
	if err != nil {
		slog.Error("log cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
}

func (h *Housekeeping) EvictWindows(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	evicted, err := h.windows.EvictExpired(ctx, h.now().Add(-h.rateWindow))
	if err != nil {
		slog.Error("rate window eviction failed", "error", err)
		return
	}
	if evicted > 0 {
		slog.Info("rate window eviction completed", "evicted", evicted)
	}
}
