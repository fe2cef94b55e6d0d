package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Override the listen address from the environment." placeholder:"HOST:PORT"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rec := a.reconciler()
	if cfg.Reconcile.OnStartup {
		runReconcile(ctx, rec)
	}
	if cfg.Reconcile.Interval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Reconcile.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					runReconcile(ctx, rec)
				}
			}
		}()
	}

	srv := server.New(ctx, cfg, server.Deps{
		Orgs:   a.orgs,
		Tokens: a.auth,
		Checks: map[string]server.Pinger{
			"postgres": a.store,
			"redis":    a.redis,
		},
	})

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("version", globals.Version).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}
