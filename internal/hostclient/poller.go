package hostclient

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamavenir/chatmirror/internal/events"
)

const defaultPollInterval = 2 * time.Second

// Poller pulls homeserver events on an interval and hands them to a sink in
// arrival order.
type Poller struct {
	Client   *Client
	Interval time.Duration
	Logger   zerolog.Logger
	Cursor   string
}

// PollResult summarizes a single poll pass.
type PollResult struct {
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
}

// PollOnce fetches one batch and delivers it. Envelopes that fail to decode
// are logged and skipped; the cursor still advances past them.
func (p *Poller) PollOnce(ctx context.Context, sink func(events.Event)) (PollResult, error) {
	result := PollResult{}
	if p.Client == nil {
		return result, fmt.Errorf("homeserver client not configured")
	}

	page, err := p.Client.PollEvents(ctx, p.Cursor)
	if err != nil {
		return result, err
	}
	for _, env := range page.Events {
		ev, err := events.Decode(env)
		if err != nil {
			p.Logger.Warn().Err(err).Str("type", env.Type).Str("id", env.ID).Msg("skipping undecodable event")
			result.Skipped++
			continue
		}
		sink(ev)
		result.Delivered++
	}
	if page.Cursor != "" {
		p.Cursor = page.Cursor
	}
	return result, nil
}

// Run polls until the context is canceled. Poll errors are logged and the
// next tick tries again.
func (p *Poller) Run(ctx context.Context, sink func(events.Event)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := p.PollOnce(ctx, sink)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Logger.Error().Err(err).Msg("poll events failed")
		} else if result.Delivered > 0 || result.Skipped > 0 {
			p.Logger.Debug().Int("delivered", result.Delivered).Int("skipped", result.Skipped).Str("cursor", p.Cursor).Msg("polled events")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
