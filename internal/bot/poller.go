// Package bot – long-polling transport.
//
// The Poller is the development/self-hosted alternative to the webhook: it
// pulls updates from getUpdates in a loop and hands each one to the
// Dispatcher. Transient API errors back the loop off and retry; the loop only
// ends when the context is cancelled.
package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// UpdateSource is the slice of the Telegram client the poller needs.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
}

// Poller drives the long-polling loop.
type Poller struct {
	source     UpdateSource
	dispatcher *Dispatcher

	// pollTimeout is the server-side hold passed to getUpdates, in seconds.
	pollTimeout int
	// backoff is the pause after a failed poll.
	backoff time.Duration
}

// NewPoller creates a Poller reading from source.
func NewPoller(source UpdateSource, d *Dispatcher) *Poller {
	return &Poller{
		source:      source,
		dispatcher:  d,
		pollTimeout: 30,
		backoff:     5 * time.Second,
	}
}

// Run polls for updates until ctx is cancelled. Each update is dispatched
// synchronously so the confirmed offset never runs ahead of processing.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Msg("starting long-polling loop")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("poll error, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			p.dispatcher.Dispatch(ctx, upd)
		}
	}
}
