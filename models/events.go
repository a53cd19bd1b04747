package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// OutboxEvent is written in the same transaction as the state change it describes.
type OutboxEvent struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventType   string          `gorm:"size:64;not null"`
	AggregateID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Payload     json.RawMessage `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index"`
	SentAt      *time.Time      `gorm:"index"`
}

type OrderEventItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderEvent struct {
	EventType  string           `json:"event_type"`
	OrderID    uuid.UUID        `json:"order_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Status     OrderStatus      `json:"status"`
	TotalPrice decimal.Decimal  `json:"total_price"`
	Items      []OrderEventItem `json:"items"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewOrderEvent snapshots an order into an outbox row.
func NewOrderEvent(eventType string, o *Order, at time.Time) (*OutboxEvent, error) {
	evt := OrderEvent{
		EventType:  eventType,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		Items:      make([]OrderEventItem, 0, len(o.Items)),
		OccurredAt: at.UTC(),
	}
	for _, it := range o.Items {
		evt.Items = append(evt.Items, OrderEventItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{EventType: eventType, AggregateID: o.ID, Payload: payload}, nil
}
