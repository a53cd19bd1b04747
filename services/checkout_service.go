package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/shop-service/metrics"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
)

// IdempotencyStore maps a client-supplied key to the order it produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error)
	Remember(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error
}

type CheckoutService struct {
	store   repository.Store
	ledger  *InventoryLedger
	idem    IdempotencyStore
	metrics metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewCheckoutService(store repository.Store, ledger *InventoryLedger, idem IdempotencyStore, rec metrics.Recorder, logger *zap.Logger) *CheckoutService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CheckoutService{
		store:   store,
		ledger:  ledger,
		idem:    idem,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckoutIdempotent replays the order previously created for key, if any.
// The bool result is true for a replay.
func (s *CheckoutService) CheckoutIdempotent(ctx context.Context, userID uuid.UUID, key string) (*models.Order, bool, error) {
	if key == "" || s.idem == nil {
		order, err := s.Checkout(ctx, userID)
		return order, false, err
	}

	if order, err := s.replay(ctx, userID, key); order != nil || err != nil {
		return order, order != nil, err
	}

	// The key is stored before the cart is cleared, so a request that finds
	// the cart drained can replay. A key left by a rolled-back checkout points
	// at no order and is ignored.
	remember := func(order *models.Order) {
		if err := s.idem.Remember(ctx, userID, key, order.ID); err != nil {
			s.logger.Warn("idempotency store failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}
	order, err := s.checkout(ctx, userID, remember)
	if err != nil {
		var empty *EmptyCartError
		if errors.As(err, &empty) {
			if replayed, rerr := s.replay(ctx, userID, key); replayed != nil || rerr != nil {
				return replayed, replayed != nil, rerr
			}
		}
		return nil, false, err
	}
	return order, false, nil
}

// replay loads the order remembered for key. Both results are nil when there
// is nothing to replay.
func (s *CheckoutService) replay(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	orderID, ok, err := s.idem.Lookup(ctx, userID, key)
	if err != nil {
		s.logger.Warn("idempotency lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if !ok {
		return nil, nil
	}
	order, err := s.store.Orders().FindByIDAndUserID(ctx, orderID, userID)
	if err == nil {
		return order, nil
	}
	if repository.IsNotFound(err) {
		return nil, nil
	}
	return nil, fmt.Errorf("load replayed order: %w", err)
}

// Checkout drains the user's cart into a NEW order in one transaction.
// Either the order, its items, the stock decrements and the emptied cart
// all commit, or none of them do.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	return s.checkout(ctx, userID, nil)
}

// checkout calls onCreate inside the transaction once the order ID exists,
// before the cart is cleared.
func (s *CheckoutService) checkout(ctx context.Context, userID uuid.UUID, onCreate func(*models.Order)) (*models.Order, error) {
	cart, err := s.store.Carts().FindByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			s.metrics.CheckoutFailed(ctx, "empty_cart")
			return nil, &EmptyCartError{}
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	pending, err := s.store.Carts().ListItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(pending) == 0 {
		s.metrics.CheckoutFailed(ctx, "empty_cart")
		return nil, &EmptyCartError{}
	}

	var (
		order *models.Order
		units int
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Carts().LockByUserID(ctx, userID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		items, err := tx.Carts().ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list cart items: %w", err)
		}
		if len(items) == 0 {
			return &EmptyCartError{}
		}

		productIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			productIDs = append(productIDs, item.ProductID)
		}
		if err := s.ledger.LockInOrder(ctx, tx, productIDs); err != nil {
			return err
		}

		order = &models.Order{UserID: userID, Status: models.OrderStatusNew, TotalPrice: decimal.Zero}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if onCreate != nil {
			onCreate(order)
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := s.ledger.Reserve(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				var stockErr *StockError
				if errors.As(err, &stockErr) {
					stockErr.ItemID = item.ID
					stockErr.Message = "Not enough stock."
				}
				return err
			}
			orderItems = append(orderItems, models.OrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			units += item.Quantity
		}

		if err := tx.Orders().CreateItems(ctx, orderItems); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		if err := tx.Orders().UpdateTotal(ctx, order.ID, total); err != nil {
			return fmt.Errorf("set order total: %w", err)
		}
		order.TotalPrice = total
		order.Items = orderItems

		if _, err := tx.Carts().ClearItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return writeOrderEvent(ctx, tx, models.EventOrderCreated, order, s.now())
	})
	if err != nil {
		s.metrics.CheckoutFailed(ctx, failureReason(err))
		s.logger.Info("checkout rejected",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.CheckoutCompleted(ctx, order.TotalPrice, units)
	s.logger.Info("checkout completed",
		zap.String("user_id", userID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

func writeOrderEvent(ctx context.Context, tx repository.Store, eventType string, order *models.Order, at time.Time) error {
	evt, err := models.NewOrderEvent(eventType, order, at)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	if err := tx.Outbox().Create(ctx, evt); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}

func failureReason(err error) string {
	var (
		stockErr    *StockError
		inactiveErr *InactiveError
		emptyErr    *EmptyCartError
		notFoundErr *NotFoundError
	)
	switch {
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &inactiveErr):
		return "inactive_product"
	case errors.As(err, &emptyErr):
		return "empty_cart"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case repository.IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
