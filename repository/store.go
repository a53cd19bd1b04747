package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store groups the repositories that must share one transaction.
type Store interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	Outbox() OutboxRepository

	// Transaction runs fn against a store bound to a single database
	// transaction. Row locks taken inside fn are held until it returns.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GormStore implements Store on top of a *gorm.DB.
type GormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

type StoreOption func(*GormStore)

// WithLockTimeout bounds how long a transaction waits on a row lock.
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *GormStore) { s.lockTimeout = d }
}

func NewGormStore(db *gorm.DB, opts ...StoreOption) *GormStore {
	s := &GormStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GormStore) Products() ProductRepository    { return NewGormProductRepository(s.db) }
func (s *GormStore) Categories() CategoryRepository { return NewGormCategoryRepository(s.db) }
func (s *GormStore) Carts() CartRepository          { return NewGormCartRepository(s.db) }
func (s *GormStore) Orders() OrderRepository        { return NewGormOrderRepository(s.db) }
func (s *GormStore) Users() UserRepository          { return NewGormUserRepository(s.db) }
func (s *GormStore) Outbox() OutboxRepository       { return NewGormOutboxRepository(s.db) }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(&GormStore{db: tx})
	})
}
