package services

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError means the entity is missing or not owned by the caller.
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Object not found."
}

// InactiveError is returned when a disabled product is referenced.
type InactiveError struct {
	ProductID uuid.UUID
}

func (e *InactiveError) Error() string { return "Product is inactive." }

// StockError reports insufficient inventory. ItemID is set for checkout failures.
type StockError struct {
	ProductID uuid.UUID
	ItemID    uuid.UUID
	Requested int
	Available int
	Message   string
}

func (e *StockError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Not enough in stock."
}

type EmptyCartError struct{}

func (e *EmptyCartError) Error() string { return "Cart is empty." }

// InvalidStateError is an illegal order lifecycle transition.
type InvalidStateError struct {
	Status  string
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// ValidationError carries the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

func notFound(key, entity string) *NotFoundError {
	return &NotFoundError{Key: key, Message: fmt.Sprintf("%s not found.", entity)}
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
