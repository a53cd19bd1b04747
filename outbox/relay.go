package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
)

// Publisher delivers one outbox event to a downstream system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, evt models.OutboxEvent) error
}

// Relay moves committed outbox events to the publishers. Delivery is at
// least once: a crash between publish and mark-sent republishes the batch.
type Relay struct {
	store      repository.Store
	publishers []Publisher
	batchSize  int
	interval   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewRelay(store repository.Store, publishers []Publisher, batchSize int, interval time.Duration, logger *zap.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		store:      store,
		publishers: publishers,
		batchSize:  batchSize,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
	}
}

// Run flushes on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Outbox relay started", zap.Duration("interval", r.interval), zap.Int("publishers", len(r.publishers)))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("Outbox flush failed", zap.Error(err))
			}
		}
	}
}

// Flush publishes one batch and returns how many events were marked sent.
// Publishing stops at the first failure so events leave in commit order.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	var sent int
	err := r.store.Transaction(ctx, func(tx repository.Store) error {
		events, err := tx.Outbox().LockPending(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch pending events: %w", err)
		}

		delivered := make([]uuid.UUID, 0, len(events))
		var publishErr error
		for _, evt := range events {
			if publishErr = r.publish(ctx, evt); publishErr != nil {
				break
			}
			delivered = append(delivered, evt.ID)
		}

		if err := tx.Outbox().MarkSent(ctx, delivered, r.now()); err != nil {
			return fmt.Errorf("mark events sent: %w", err)
		}
		sent = len(delivered)
		if publishErr != nil {
			r.logger.Warn("Outbox publish interrupted", zap.Int("delivered", sent), zap.Error(publishErr))
		}
		return nil
	})
	return sent, err
}

func (r *Relay) publish(ctx context.Context, evt models.OutboxEvent) error {
	for _, p := range r.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}
