package memstore

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yashrajoria/shop-service/models"
)

func copyProduct(p models.Product) *models.Product {
	if p.CategoryID != nil {
		id := *p.CategoryID
		p.CategoryID = &id
	}
	p.Category = nil
	return &p
}

func copyEvent(e models.OutboxEvent) models.OutboxEvent {
	e.Payload = append([]byte(nil), e.Payload...)
	e.SentAt = copyTime(e.SentAt)
	return e
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

func sortBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// page applies 1-based offset pagination, defaulting the size to 20.
func page[T any](items []T, pageNum, size int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	if size < 1 {
		size = 20
	}
	start := (pageNum - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", ConstraintName: constraint, Message: "new row violates check constraint " + constraint}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "update or delete violates foreign key constraint " + constraint}
}
