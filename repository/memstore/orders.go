package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"gorm.io/gorm"
)

type orderRepo struct{ h *handle }

func (r orderRepo) FindByUserID(ctx context.Context, userID uuid.UUID, pageNum, limit int) ([]models.Order, int64, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	var orders []models.Order
	for _, o := range r.h.s.data.orders {
		if o.UserID == userID {
			orders = append(orders, r.withItems(o))
		}
	}
	sortBy(orders, func(a, b models.Order) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return b.CreatedAt.Before(a.CreatedAt)
		}
		return compareIDs(b.ID, a.ID) < 0
	})
	return page(orders, pageNum, limit), int64(len(orders)), nil
}

func (r orderRepo) FindByIDAndUserID(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	return r.owned(orderID, userID)
}

func (r orderRepo) LockByIDAndUserID(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	if err := r.h.lock(ctx, rowKey("orders", orderID)); err != nil {
		return nil, err
	}
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("orders.LockByIDAndUserID"); err != nil {
		return nil, err
	}
	return r.owned(orderID, userID)
}

func (r orderRepo) Create(ctx context.Context, order *models.Order) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("orders.Create"); err != nil {
		return err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if _, exists := r.h.s.data.orders[order.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	order.CreatedAt = r.h.nextTime()
	row := *order
	row.Items = nil
	put(r.h, r.h.s.data.orders, row.ID, row)
	return nil
}

func (r orderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("orders.CreateItems"); err != nil {
		return err
	}
	for i := range items {
		if _, ok := r.h.s.data.orders[items[i].OrderID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := r.h.s.data.products[items[i].ProductID]; !ok {
			return foreignKeyViolation("fk_order_items_product")
		}
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		put(r.h, r.h.s.data.orderItems, items[i].ID, items[i])
	}
	return nil
}

func (r orderRepo) UpdateTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("orders.UpdateTotal"); err != nil {
		return err
	}
	o, ok := r.h.s.data.orders[orderID]
	if !ok {
		return nil
	}
	o.TotalPrice = total
	put(r.h, r.h.s.data.orders, orderID, o)
	return nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, order *models.Order) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("orders.UpdateStatus"); err != nil {
		return err
	}
	o, ok := r.h.s.data.orders[order.ID]
	if !ok {
		return nil
	}
	o.Status = order.Status
	o.PaidAt = copyTime(order.PaidAt)
	o.CancelledAt = copyTime(order.CancelledAt)
	put(r.h, r.h.s.data.orders, order.ID, o)
	return nil
}

// owned must be called with mu held.
func (r orderRepo) owned(orderID, userID uuid.UUID) (*models.Order, error) {
	o, ok := r.h.s.data.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	found := r.withItems(o)
	return &found, nil
}

// withItems loads items ordered by id. mu must be held.
func (r orderRepo) withItems(o models.Order) models.Order {
	o.Items = []models.OrderItem{}
	for _, it := range r.h.s.data.orderItems {
		if it.OrderID == o.ID {
			o.Items = append(o.Items, it)
		}
	}
	sortBy(o.Items, func(a, b models.OrderItem) bool { return compareIDs(a.ID, b.ID) < 0 })
	o.PaidAt = copyTime(o.PaidAt)
	o.CancelledAt = copyTime(o.CancelledAt)
	return o
}

type userRepo struct{ h *handle }

func (r userRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	for _, u := range r.h.s.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	u, ok := r.h.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	for _, u := range r.h.s.data.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.h.nextTime()
	put(r.h, r.h.s.data.users, user.ID, *user)
	return nil
}

type outboxRepo struct{ h *handle }

func (r outboxRepo) Create(ctx context.Context, evt *models.OutboxEvent) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("outbox.Create"); err != nil {
		return err
	}
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	evt.CreatedAt = r.h.nextTime()
	put(r.h, r.h.s.data.outbox, evt.ID, copyEvent(*evt))
	return nil
}

// LockPending skips events locked by another transaction.
func (r outboxRepo) LockPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	r.h.s.mu.Lock()
	var pending []models.OutboxEvent
	for _, e := range r.h.s.data.outbox {
		if e.SentAt == nil {
			pending = append(pending, copyEvent(e))
		}
	}
	r.h.s.mu.Unlock()
	sortBy(pending, func(a, b models.OutboxEvent) bool { return a.CreatedAt.Before(b.CreatedAt) })

	var claimed []models.OutboxEvent
	for _, e := range pending {
		if len(claimed) == limit {
			break
		}
		if r.tryLock(rowKey("outbox", e.ID)) {
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

func (r outboxRepo) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("outbox.MarkSent"); err != nil {
		return err
	}
	for _, id := range ids {
		e, ok := r.h.s.data.outbox[id]
		if !ok {
			continue
		}
		sent := at
		e.SentAt = &sent
		put(r.h, r.h.s.data.outbox, id, e)
	}
	return nil
}

// tryLock takes the row lock only if it is free or already ours.
func (r outboxRepo) tryLock(key string) bool {
	s := r.h.s
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if ok {
		return l.owner == r.h.tx && r.h.tx != nil
	}
	if r.h.tx == nil {
		return true
	}
	s.locks[key] = &rowLock{owner: r.h.tx, released: make(chan struct{})}
	r.h.tx.held = append(r.h.tx.held, key)
	return true
}
