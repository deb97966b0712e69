package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

type EventPublisher interface {
	Publish(ctx context.Context, event draft.Event) error
}

type OutboxRelayConfig struct {
	Interval time.Duration
	Batch    int
}

// OutboxRelay publishes committed draft events in OccurredAt order. A failed
// publish stops the batch so later events never overtake it.
type OutboxRelay struct {
	outbox    draft.EventOutbox
	publisher EventPublisher
	clock     clockwork.Clock
	cfg       OutboxRelayConfig
	logger    *logging.Logger
}

func NewOutboxRelay(
	outbox draft.EventOutbox,
	publisher EventPublisher,
	clock clockwork.Clock,
	cfg OutboxRelayConfig,
	logger *logging.Logger,
) *OutboxRelay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}

	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce returns how many events were published and marked.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OutboxRelay.RelayOnce")
	defer span.End()

	events, err := r.outbox.ListUnpublishedEvents(ctx, r.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("list unpublished events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]string, 0, len(events))
	var publishErr error
	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			publishErr = fmt.Errorf("publish event id=%s type=%s: %w", event.ID, event.Type, err)
			break
		}
		published = append(published, event.ID)
	}

	if len(published) > 0 {
		if err := r.outbox.MarkEventsPublished(ctx, published, r.clock.Now().UTC()); err != nil {
			return 0, fmt.Errorf("mark events published: %w", err)
		}
	}
	return len(published), publishErr
}
