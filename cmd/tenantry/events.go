package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/orgs"
	redisstore "github.com/gosuda/tenantry/internal/store/redis"
)

type EventsCmd struct {
	Channel string `help:"Channel to subscribe to, overriding TENANTRY_EVENT_CHANNEL."`
}

func (c *EventsCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	channel := cfg.Redis.EventChannel
	if c.Channel != "" {
		channel = c.Channel
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb, err := retry(ctx, "redis", func() (*redisstore.Client, error) {
		return redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close() //nolint:errcheck // best effort on exit

	payloads, stop, err := rdb.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	defer stop()

	log.Info().Str("channel", channel).Msg("listening for events")
	for payload := range payloads {
		var evt orgs.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			log.Warn().Err(err).Bytes("payload", payload).Msg("skipping malformed event")
			continue
		}
		log.Info().
			Str("type", string(evt.Type)).
			Str("organization", evt.Organization).
			Str("collection", evt.Collection).
			Str("previous", evt.Previous).
			Time("at", evt.At).
			Msg("event")
	}
	return nil
}
