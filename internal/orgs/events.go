package orgs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType names a lifecycle transition.
type EventType string

const (
	EventCreated EventType = "organization.created"
	EventUpdated EventType = "organization.updated"
	EventDeleted EventType = "organization.deleted"
)

// Event is the payload published after a lifecycle operation succeeds.
type Event struct {
	Type         EventType `json:"type"`
	Organization string    `json:"organization"`
	Collection   string    `json:"collection"`
	Previous     string    `json:"previous,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher delivers raw payloads to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// publish emits an event. Delivery is best effort: the operation has already
// committed, so failures are only logged.
func (s *Service) publish(ctx context.Context, typ EventType, org, collection, previous string) {
	if s.publisher == nil || s.eventChannel == "" {
		return
	}

	payload, err := json.Marshal(Event{
		Type:         typ,
		Organization: org,
		Collection:   collection,
		Previous:     previous,
		At:           s.now(),
	})
	if err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("failed to encode lifecycle event")
		return
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.eventChannel, payload); err != nil {
		log.Warn().Err(err).Str("type", string(typ)).Str("org", org).Msg("failed to publish lifecycle event")
	}
}
