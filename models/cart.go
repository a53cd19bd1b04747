package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is created lazily, one per user.
type Cart struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	Total     decimal.Decimal `gorm:"-" json:"total"`
}

// CartItem holds one distinct product per cart.
type CartItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product" json:"cart"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product" json:"product"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Quantity  int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	Subtotal  decimal.Decimal `gorm:"-" json:"subtotal"`
}

// ComputeSubtotal prices the line at the product's current price.
func (i *CartItem) ComputeSubtotal() {
	if i.Product == nil {
		return
	}
	i.Subtotal = i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotals fills every Subtotal and sums Total.
func (c *Cart) ComputeTotals() {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].ComputeSubtotal()
		total = total.Add(c.Items[i].Subtotal)
	}
	c.Total = total
}
