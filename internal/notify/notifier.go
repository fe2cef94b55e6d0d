// Package notify delivers operational reports, such as reconciliation
// summaries, to the channels operators watch.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Channel is one delivery target for operator notifications.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}

// Notifier fans a notification out to every registered channel.
type Notifier struct {
	channels *Registry
}

// New creates a Notifier over the channels in reg.
func New(reg *Registry) *Notifier {
	return &Notifier{channels: reg}
}

// Notify sends to every channel and reports all failures together. With no
// channels registered the notification is only logged.
func (n *Notifier) Notify(ctx context.Context, title, body string) error {
	channels := n.channels.All()
	if len(channels) == 0 {
		log.Info().Str("title", title).Msg(body)
		return nil
	}

	var errs []error
	for _, ch := range channels {
		if err := ch.Send(ctx, title, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify.Notifier.Notify: %w", err)
	}
	return nil
}
