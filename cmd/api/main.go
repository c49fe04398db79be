package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolhub/membership/internal/api"
	"github.com/schoolhub/membership/internal/api/handlers"
	"github.com/schoolhub/membership/internal/audit"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/cache"
	"github.com/schoolhub/membership/internal/classroom"
	"github.com/schoolhub/membership/internal/config"
	"github.com/schoolhub/membership/internal/database"
	"github.com/schoolhub/membership/internal/identity"
	"github.com/schoolhub/membership/internal/member"
	"github.com/schoolhub/membership/internal/queue"
	"github.com/schoolhub/membership/internal/roster"
	"github.com/schoolhub/membership/internal/store"
	"github.com/schoolhub/membership/internal/store/memstore"
	"github.com/schoolhub/membership/internal/store/mongostore"
	"github.com/schoolhub/membership/internal/student"
	"github.com/schoolhub/membership/internal/tenant"
	"github.com/schoolhub/membership/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Document store
	var (
		st          *store.Store
		mongoClient *mongo.Client
	)
	switch cfg.Store {
	case config.StoreMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		st = memstore.Open().Store()
	default:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			slog.Error("mongo unavailable", "error", err)
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			slog.Error("ensure indexes failed", "error", err)
			os.Exit(1)
		}
		mongoClient = client
		st = mongostore.New(db)
	}

	// Audit database (optional)
	var (
		pool     *pgxpool.Pool
		auditLog audit.Logger = audit.Discard{}
		auditSvc handlers.AuditReader
	)
	if cfg.Database.URL != "" {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("audit database unavailable, running without audit trail", "error", err)
		} else {
			pool = db
			defer db.Close()

			var schema fs.FS = migrations.FS
			if cfg.Database.MigrationsPath != "" {
				schema = os.DirFS(cfg.Database.MigrationsPath)
			}
			if err := database.RunMigrations(ctx, db, schema); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			svc := audit.NewService(db)
			auditLog, auditSvc = svc, svc
		}
	}

	// Redis (optional): idempotency records and background tasks
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	tenantOpts := []tenant.Option{tenant.WithAudit(auditLog)}
	var enqueuer roster.Enqueuer
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without idempotency and background repair", "error", err)
	} else {
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		enqueuer = qc
		tenantOpts = append(tenantOpts,
			tenant.WithIdempotency(cache.NewIdempotency(cache.NewCache(rdb, "schoolhub"), cfg.Auth.IdempotencyTTL)),
			tenant.WithRepairScheduler(qc),
		)
	}

	gate := auth.NewGate(st.Members)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	reconciler := roster.NewReconciler(st.Classes, st.Students, cfg.Worker.RosterConcurrency)

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Tokens:   tokens,
		Gate:     gate,
		Identity: identity.NewService(st.Users, identity.NewOAuthClient(cfg.OAuth), tokens),
		Tenants:  tenant.NewService(st, gate, tenantOpts...),
		Members:  member.NewService(st.Members, gate, auditLog),
		Classes:  classroom.NewService(st, gate, reconciler),
		Students: student.NewService(st, gate, roster.NewSynchronizer(st.Classes, enqueuer)),
		AuditLog: auditSvc,
		Health:   handlers.NewHealthHandler(pool, rdb, mongoClient),
	})
	handler := router.Setup(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
