package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/partsync/partsync/internal/observability"
	"github.com/partsync/partsync/internal/ops"
	"github.com/partsync/partsync/internal/stock"
)

// Notifier receives the user-facing notifications emitted during a sync.
type Notifier interface {
	Info(title, message string)
	Success(title, message string)
	Warning(title, message string)
}

// DefaultInterval is the periodic sync cadence.
const DefaultInterval = 30 * time.Second

// Scheduler runs the sync loop. Enabling starts at most one periodic timer;
// disabling stops it without touching in-flight notifications. SyncNow is
// always available as a manual one-shot, whether or not the loop runs.
type Scheduler struct {
	interval time.Duration
	source   Source
	ledger   *stock.Ledger
	notifier Notifier
	cache    *stock.SnapshotCache
	reporter ops.Reporter
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	enabled bool
	stop    chan struct{}
}

// SchedulerConfig groups Scheduler dependencies. Cache, Reporter and Metrics
// are optional.
type SchedulerConfig struct {
	Interval time.Duration
	Source   Source
	Ledger   *stock.Ledger
	Notifier Notifier
	Cache    *stock.SnapshotCache
	Reporter ops.Reporter
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewScheduler constructs a Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		interval: cfg.Interval,
		source:   cfg.Source,
		ledger:   cfg.Ledger,
		notifier: cfg.Notifier,
		cache:    cfg.Cache,
		reporter: cfg.Reporter,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Enable starts the periodic loop. It reports whether the call changed state;
// calling it while already enabled never creates a second timer.
func (s *Scheduler) Enable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return false
	}
	s.enabled = true
	s.stop = make(chan struct{})
	go s.loop(s.stop)
	return true
}

// Disable stops the periodic loop. Idempotent; pending notifications are
// left to expire on their own schedule.
func (s *Scheduler) Disable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return false
	}
	close(s.stop)
	s.stop = nil
	s.enabled = false
	return true
}

// Enabled reports whether the periodic loop is running.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.SyncNow(context.Background()); err != nil {
				s.logger.Warn("periodic sync failed", slog.Any("error", err))
			}
		}
	}
}

// SyncNow performs one synchronization run. On failure the previous snapshot
// stays in place; the failure is surfaced and reported.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	start := time.Now()
	payload, err := s.source.FetchSnapshot(ctx)
	if err != nil {
		s.metrics.ObserveSync("error", time.Since(start))
		if s.notifier != nil {
			s.notifier.Warning("Sync failed", "Failed to sync inventory data")
		}
		if s.reporter != nil {
			s.reporter.Report(ctx, ops.Event{
				Kind:       "sync_failed",
				Message:    err.Error(),
				ReportedAt: time.Now().UTC(),
			})
		}
		return err
	}

	s.ledger.ReplaceSnapshot(payload.Products)

	if s.notifier != nil {
		for _, alert := range payload.LowStockAlerts {
			if alert.IsNew {
				s.notifier.Warning("Low stock: "+alert.ProductName, fmt.Sprintf("%d remaining", alert.CurrentStock))
			}
		}
		for _, update := range payload.StockUpdates {
			switch update.Type {
			case stock.UpdateSale:
				s.notifier.Info("Sale: "+update.ProductName, fmt.Sprintf("Qty: %d", update.Quantity))
			case stock.UpdateRestock:
				s.notifier.Success("Restocked: "+update.ProductName, fmt.Sprintf("+%d", update.Quantity))
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, payload.Products); err != nil {
			s.logger.Warn("persist snapshot", slog.Any("error", err))
		}
	}
	s.metrics.ObserveSync("ok", time.Since(start))
	return nil
}

// Restore seeds the ledger from the snapshot cache, if one is present. Used
// at startup so the engine does not come up empty before the first sync.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	products, err := s.cache.Load(ctx)
	if err != nil {
		return err
	}
	if len(products) > 0 {
		s.ledger.ReplaceSnapshot(products)
		s.logger.Info("restored snapshot from cache", slog.Int("products", len(products)))
	}
	return nil
}
