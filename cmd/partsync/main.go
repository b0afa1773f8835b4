package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/partsync/partsync/internal/app"
	"github.com/partsync/partsync/internal/notify"
	"github.com/partsync/partsync/internal/observability"
	"github.com/partsync/partsync/internal/ops"
	"github.com/partsync/partsync/internal/platform/cache"
	"github.com/partsync/partsync/internal/stock"
	"github.com/partsync/partsync/internal/syncer"
	"github.com/partsync/partsync/internal/transfer"
	"github.com/partsync/partsync/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var snapshotCache *stock.SnapshotCache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The engine runs without redis; it just loses restart continuity
		// and queued ops reports.
		logger.Warn("redis unavailable", slog.Any("error", err))
	} else {
		snapshotCache = stock.NewSnapshotCache(redisClient, 0)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var reporter ops.Reporter
	if redisClient != nil {
		jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		reporter = ops.NewQueueReporter(jobClient.EnqueueOpsReport, logger)
	} else {
		reporter = ops.NewLogReporter(logger)
	}

	notifications := notify.NewManager(notify.Config{
		Capacity: cfg.NotificationCap,
		TTL:      cfg.NotificationTTL,
		OnDrop:   metrics.AddNotificationsDropped,
	})
	defer notifications.Close()

	ledger := stock.NewLedger(notifications)

	scheduler := syncer.NewScheduler(syncer.SchedulerConfig{
		Interval: cfg.SyncInterval,
		Source:   syncer.NewHTTPSource(cfg.UpstreamBaseURL, cfg.UpstreamTimeout),
		Ledger:   ledger,
		Notifier: notifications,
		Cache:    snapshotCache,
		Reporter: reporter,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err := scheduler.Restore(ctx); err != nil {
		logger.Warn("restore snapshot", slog.Any("error", err))
	}

	transferClient := transfer.NewClient(transfer.ClientConfig{
		BaseURL:  cfg.UpstreamBaseURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.UpstreamTimeout,
		Logger:   logger,
		Reporter: reporter,
		Metrics:  metrics,
	})
	transfers := transfer.NewManager(transfer.ManagerConfig{
		Client:    transferClient,
		Messenger: ops.NewLogMessenger(logger),
		Logger:    logger,
		Metrics:   metrics,
		PerPage:   cfg.TransfersPerPage,
	})

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Ledger:        ledger,
		Notifications: notifications,
		Scheduler:     scheduler,
		Transfers:     transfers,
		JobHandler:    jobHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := scheduler.SyncNow(ctx); err != nil {
			logger.Warn("initial sync", slog.Any("error", err))
		}
		if cfg.SyncEnabled {
			scheduler.Enable()
		}
		if err := transfers.Refresh(ctx); err != nil {
			logger.Warn("initial transfer load", slog.Any("error", err))
		}
		return nil
	})

	group.Go(func() error {
		logger.Info("console api listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		scheduler.Disable()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("engine stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("engine stopped")
}
