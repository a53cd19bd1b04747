// Package memstore is an in-memory repository.Store for tests.
//
// Transactions hold row locks until commit or rollback and undo their writes
// on error. Reads that do not lock see uncommitted writes of other
// transactions, which is weaker than Postgres READ COMMITTED; every stock
// and cart mutation in the services locks before it reads, so the
// difference does not show up there.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type tables struct {
	categories map[uuid.UUID]models.Category
	products   map[uuid.UUID]models.Product
	users      map[uuid.UUID]models.User
	carts      map[uuid.UUID]models.Cart
	cartItems  map[uuid.UUID]models.CartItem
	orders     map[uuid.UUID]models.Order
	orderItems map[uuid.UUID]models.OrderItem
	outbox     map[uuid.UUID]models.OutboxEvent
}

type rowLock struct {
	owner    *txn
	released chan struct{}
}

type txn struct {
	held []string
	undo []func()
}

// Store implements repository.Store in memory.
type Store struct {
	mu          sync.Mutex
	data        tables
	locks       map[string]*rowLock
	seq         int64
	faults      map[string]error
	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout makes lock waits fail with SQLSTATE 55P03 after d.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

func New(opts ...Option) *Store {
	s := &Store{
		data: tables{
			categories: map[uuid.UUID]models.Category{},
			products:   map[uuid.UUID]models.Product{},
			users:      map[uuid.UUID]models.User{},
			carts:      map[uuid.UUID]models.Cart{},
			cartItems:  map[uuid.UUID]models.CartItem{},
			orders:     map[uuid.UUID]models.Order{},
			orderItems: map[uuid.UUID]models.OrderItem{},
			outbox:     map[uuid.UUID]models.OutboxEvent{},
		},
		locks:  map[string]*rowLock{},
		faults: map[string]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

func (s *Store) root() *handle { return &handle{s: s} }

func (s *Store) Products() repository.ProductRepository    { return s.root().Products() }
func (s *Store) Categories() repository.CategoryRepository { return s.root().Categories() }
func (s *Store) Carts() repository.CartRepository          { return s.root().Carts() }
func (s *Store) Orders() repository.OrderRepository        { return s.root().Orders() }
func (s *Store) Users() repository.UserRepository          { return s.root().Users() }
func (s *Store) Outbox() repository.OutboxRepository       { return s.root().Outbox() }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.root().Transaction(ctx, fn)
}

// FailOn makes every call of op (for example "orders.CreateItems") return
// err until ClearFaults is called.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]error{}
}

// OrderCount returns the number of committed or in-flight orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.orders)
}

func (s *Store) OrderItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.orderItems)
}

// Events returns all outbox rows in insertion order.
func (s *Store) Events() []models.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.OutboxEvent, 0, len(s.data.outbox))
	for _, e := range s.data.outbox {
		out = append(out, copyEvent(e))
	}
	sortBy(out, func(a, b models.OutboxEvent) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return out
}

// handle is a Store view, bound to a transaction when tx is set.
type handle struct {
	s  *Store
	tx *txn
}

func (h *handle) Products() repository.ProductRepository    { return productRepo{h} }
func (h *handle) Categories() repository.CategoryRepository { return categoryRepo{h} }
func (h *handle) Carts() repository.CartRepository          { return cartRepo{h} }
func (h *handle) Orders() repository.OrderRepository        { return orderRepo{h} }
func (h *handle) Users() repository.UserRepository          { return userRepo{h} }
func (h *handle) Outbox() repository.OutboxRepository       { return outboxRepo{h} }

// Transaction joins the current transaction when already inside one.
func (h *handle) Transaction(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if h.tx != nil {
		return fn(h)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txn{}
	defer func() {
		if p := recover(); p != nil {
			h.s.finish(tx, false)
			panic(p)
		}
		h.s.finish(tx, err == nil)
	}()
	return fn(&handle{s: h.s, tx: tx})
}

func (s *Store) finish(tx *txn, commit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !commit {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	for _, key := range tx.held {
		if l, ok := s.locks[key]; ok && l.owner == tx {
			close(l.released)
			delete(s.locks, key)
		}
	}
	tx.held, tx.undo = nil, nil
}

// lock takes an exclusive row lock held until the transaction ends. Outside
// a transaction it only waits for the row to be free.
func (h *handle) lock(ctx context.Context, key string) error {
	tx := h.tx
	if tx == nil {
		tx = &txn{}
		defer h.s.finish(tx, true)
	}

	var timeout <-chan time.Time
	if h.s.lockTimeout > 0 {
		t := time.NewTimer(h.s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}
	for {
		h.s.mu.Lock()
		l, ok := h.s.locks[key]
		if !ok {
			h.s.locks[key] = &rowLock{owner: tx, released: make(chan struct{})}
			tx.held = append(tx.held, key)
			h.s.mu.Unlock()
			return nil
		}
		if l.owner == tx {
			h.s.mu.Unlock()
			return nil
		}
		wait := l.released
		h.s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return &pgconn.PgError{Code: "55P03", Message: fmt.Sprintf("canceling statement due to lock timeout on %s", key)}
		}
	}
}

// fault must be called with mu held.
func (h *handle) fault(op string) error {
	return h.s.faults[op]
}

// journal must be called with mu held.
func (h *handle) journal(undo func()) {
	if h.tx != nil {
		h.tx.undo = append(h.tx.undo, undo)
	}
}

// nextTime returns strictly increasing creation times. mu must be held.
func (h *handle) nextTime() time.Time {
	h.s.seq++
	return epoch.Add(time.Duration(h.s.seq) * time.Millisecond)
}

func put[K comparable, V any](h *handle, m map[K]V, k K, v V) {
	prev, existed := m[k]
	m[k] = v
	h.journal(func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func remove[K comparable, V any](h *handle, m map[K]V, k K) bool {
	prev, existed := m[k]
	if !existed {
		return false
	}
	delete(m, k)
	h.journal(func() { m[k] = prev })
	return true
}

func rowKey(table string, id uuid.UUID) string {
	return table + "/" + id.String()
}
