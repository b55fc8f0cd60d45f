package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Store is the persistence port the relay polls. Implemented by the sqlite
// store alongside the order tables.
type Store interface {
	// NextBatch returns up to limit unpublished rows, oldest first.
	NextBatch(ctx context.Context, limit int) ([]Row, error)
	// MarkPublished records broker acknowledgment for a row.
	MarkPublished(ctx context.Context, id string) error
	// MarkFailed increments the attempt counter and stores the last error.
	MarkFailed(ctx context.Context, id string, cause string) error
}

// Config tunes the relay loop.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxBackoff caps the exponential backoff applied after publish failures.
	MaxBackoff time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Minute
	}
}

// Relay drains the outbox into the broker. It runs decoupled from the
// request path, so a broker outage slows delivery instead of losing events.
type Relay struct {
	store     Store
	publisher message.Publisher
	logger    *slog.Logger
	cfg       Config
}

func NewRelay(store Store, publisher message.Publisher, logger *slog.Logger, cfg Config) *Relay {
	cfg.applyDefaults()
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run polls until ctx is cancelled. Publish failures back off exponentially
// up to MaxBackoff; a successful batch resets the backoff.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.cfg.PollInterval
	for {
		published, err := r.RelayOnce(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			backoff = min(backoff*2, r.cfg.MaxBackoff)
		} else {
			backoff = r.cfg.PollInterval
			if published > 0 {
				r.logger.InfoContext(ctx, "outbox rows published", "count", published)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// RelayOnce performs a single poll-and-publish pass and returns the number
// of rows acknowledged by the broker. The first publish failure ends the
// pass so row order is preserved per topic.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	rows, err := r.store.NextBatch(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		msg := message.NewMessage(row.ID, row.Payload)
		msg.SetContext(ctx)
		if err := r.publisher.Publish(row.Topic, msg); err != nil {
			if markErr := r.store.MarkFailed(ctx, row.ID, err.Error()); markErr != nil {
				r.logger.ErrorContext(ctx, "failed to record outbox failure", "row_id", row.ID, "error", markErr)
			}
			return published, err
		}
		if err := r.store.MarkPublished(ctx, row.ID); err != nil {
			// The event went out but the row stays pending; the broker's
			// message-id dedup absorbs the redelivery on the next pass.
			return published, err
		}
		published++
	}
	return published, nil
}
