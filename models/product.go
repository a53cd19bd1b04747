package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	Slug     string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	IsActive bool      `gorm:"not null" json:"is_active"`
}

// Product carries the stock counter guarded by the inventory ledger.
type Product struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;index" json:"category"`
	Category   *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
	Name       string          `gorm:"size:255;not null;index" json:"name"`
	Slug       string          `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Price      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock      int             `gorm:"not null;check:stock >= 0" json:"stock"`
	IsActive   bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductList is one page of a product listing.
type ProductList struct {
	Count   int64     `json:"count"`
	Results []Product `json:"results"`
}
