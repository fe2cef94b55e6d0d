package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/auth"
	"github.com/gosuda/tenantry/internal/config"
	"github.com/gosuda/tenantry/internal/notify"
	"github.com/gosuda/tenantry/internal/orgs"
	"github.com/gosuda/tenantry/internal/store/postgres"
	redisstore "github.com/gosuda/tenantry/internal/store/redis"
	"github.com/gosuda/tenantry/internal/tenant"
)

// connectTimeout bounds how long startup waits for backing services.
const connectTimeout = 30 * time.Second

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// loadConfig reads the configuration and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}
	return cfg, nil
}

// retry runs connect with exponential backoff until it succeeds or
// connectTimeout elapses.
func retry[T any](ctx context.Context, what string, connect func() (T, error)) (T, error) {
	return backoff.Retry(ctx, connect,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(connectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("component", what).Dur("retry_in", next).Msg("connection failed")
		}),
	)
}

// app holds the collaborators every command builds on.
type app struct {
	cfg    *config.Config
	store  *postgres.Store
	redis  *redisstore.Client
	auth   *auth.Service
	orgs   *orgs.Service
	notify *notify.Notifier
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := retry(ctx, "postgres", func() (*postgres.Store, error) {
		return postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), cfg.Tenant.Schema) //nolint:gosec // bounds checked in loadConfig
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	rdb, err := retry(ctx, "redis", func() (*redisstore.Client, error) {
		return redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	identity := auth.NewService(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	svc := orgs.NewService(orgs.Deps{
		Organizations:  store.Organizations(),
		Administrators: store.Administrators(),
		Journal:        store.Journal(),
		Tenants:        tenant.NewManager(store.Documents(), cfg.Tenant.CopyBatchSize),
		Identity:       identity,
		Locker:         rdb.Locker(),
		Publisher:      rdb,
	}, orgs.Options{
		LeaseTTL:     cfg.Lease.TTL,
		NativeRename: cfg.Tenant.NativeRename,
		EventChannel: cfg.Redis.EventChannel,
	})

	channels := notify.NewRegistry()
	if cfg.Notify.SlackWebhookURL != "" {
		channels.Register(notify.NewSlackWebhook(cfg.Notify.SlackWebhookURL))
	} else {
		channels.Register(notify.NewLog(zerolog.WarnLevel))
	}

	return &app{
		cfg:    cfg,
		store:  store,
		redis:  rdb,
		auth:   identity,
		orgs:   svc,
		notify: notify.New(channels),
	}, nil
}

func (a *app) reconciler() *orgs.Reconciler {
	return orgs.NewReconciler(a.orgs, a.notify, orgs.ReconcilerOptions{
		GracePeriod: a.cfg.Reconcile.GracePeriod,
		DropOrphans: a.cfg.Reconcile.DropOrphans,
	})
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis")
	}
	a.store.Close()
}
