package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schoolhub/membership/internal/audit"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/config"
	"github.com/schoolhub/membership/internal/database"
	"github.com/schoolhub/membership/internal/queue"
	"github.com/schoolhub/membership/internal/queue/workers"
	"github.com/schoolhub/membership/internal/roster"
	"github.com/schoolhub/membership/internal/store"
	"github.com/schoolhub/membership/internal/store/memstore"
	"github.com/schoolhub/membership/internal/store/mongostore"
	"github.com/schoolhub/membership/internal/tenant"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()

	var st *store.Store
	if cfg.Store == config.StoreMemory {
		slog.Warn("worker running against an in-memory store")
		st = memstore.Open().Store()
	} else {
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			slog.Error("mongo unavailable", "error", err)
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())
		st = mongostore.New(db)
	}

	var auditLog audit.Logger = audit.Discard{}
	if cfg.Database.URL != "" {
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("audit database unavailable", "error", err)
		} else {
			defer pool.Close()
			auditLog = audit.NewService(pool)
		}
	}

	tenants := tenant.NewService(st, auth.NewGate(st.Members), tenant.WithAudit(auditLog))
	reconciler := roster.NewReconciler(st.Classes, st.Students, cfg.Worker.RosterConcurrency)

	redisOpt := queue.RedisOpt(cfg.Redis)
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	rosterWorker := workers.NewRosterWorker(reconciler)
	ownerWorker := workers.NewOwnerWorker(tenants)

	registry.Register(queue.TypeRosterReconcile, asynq.HandlerFunc(rosterWorker.ProcessTask))
	registry.Register(queue.TypeOwnerRepair, asynq.HandlerFunc(ownerWorker.ProcessRepair))
	registry.Register(queue.TypeOwnerRepairScan, asynq.HandlerFunc(ownerWorker.ProcessScan))

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if cfg.Worker.OwnerRepairCron != "" {
		entryID, err := scheduler.Register(cfg.Worker.OwnerRepairCron,
			asynq.NewTask(queue.TypeOwnerRepairScan, nil), asynq.Queue("critical"))
		if err != nil {
			slog.Error("register owner repair scan", "error", err)
			os.Exit(1)
		}
		slog.Info("scheduled owner repair scan", "cron", cfg.Worker.OwnerRepairCron, "entry_id", entryID)
	}

	var metricsSrv *http.Server
	if cfg.Worker.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)
	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}
	slog.Info("worker stopped")
}
