package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/metrics"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
)

type OrderService struct {
	store   repository.Store
	ledger  *InventoryLedger
	metrics metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrderService(store repository.Store, ledger *InventoryLedger, rec metrics.Recorder, logger *zap.Logger) *OrderService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &OrderService{
		store:   store,
		ledger:  ledger,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
	}
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	orders, total, err := s.store.Orders().FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.store.Orders().FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("order", "Order")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Pay flips a NEW order to PAID. Inventory is untouched.
func (s *OrderService) Pay(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		o, err := s.lockNew(ctx, tx, orderID, userID, "Only NEW orders can be paid.")
		if err != nil {
			return err
		}
		now := s.now()
		o.Status = models.OrderStatusPaid
		o.PaidAt = &now
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		order = o
		return writeOrderEvent(ctx, tx, models.EventOrderPaid, o, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderTransitioned(ctx, string(models.OrderStatusPaid))
	s.logger.Info("order paid", zap.String("order_id", order.ID.String()), zap.String("user_id", userID.String()))
	return order, nil
}

// Cancel flips a NEW order to CANCELLED and releases every item's quantity
// in the same transaction.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var (
		order    *models.Order
		released int
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		o, err := s.lockNew(ctx, tx, orderID, userID, "Only NEW orders can be cancelled.")
		if err != nil {
			return err
		}

		items := slices.Clone(o.Items)
		slices.SortStableFunc(items, func(a, b models.OrderItem) int {
			return compareUUID(a.ProductID, b.ProductID)
		})
		for _, item := range items {
			if err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			released += item.Quantity
		}

		now := s.now()
		o.Status = models.OrderStatusCancelled
		o.CancelledAt = &now
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return fmt.Errorf("mark order cancelled: %w", err)
		}
		order = o
		return writeOrderEvent(ctx, tx, models.EventOrderCancelled, o, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockReleased(ctx, released)
	s.metrics.OrderTransitioned(ctx, string(models.OrderStatusCancelled))
	s.logger.Info("order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("released_units", released),
	)
	return order, nil
}

func (s *OrderService) lockNew(ctx context.Context, tx repository.Store, orderID, userID uuid.UUID, msg string) (*models.Order, error) {
	o, err := tx.Orders().LockByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("order", "Order")
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if o.Status != models.OrderStatusNew {
		return nil, &InvalidStateError{Status: string(o.Status), Message: msg}
	}
	return o, nil
}
