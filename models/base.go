package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a client-side UUID so callers know the key before insert.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Category) BeforeCreate(tx *gorm.DB) error    { ensureID(&c.ID); return nil }
func (p *Product) BeforeCreate(tx *gorm.DB) error     { ensureID(&p.ID); return nil }
func (u *User) BeforeCreate(tx *gorm.DB) error        { ensureID(&u.ID); return nil }
func (c *Cart) BeforeCreate(tx *gorm.DB) error        { ensureID(&c.ID); return nil }
func (i *CartItem) BeforeCreate(tx *gorm.DB) error    { ensureID(&i.ID); return nil }
func (o *Order) BeforeCreate(tx *gorm.DB) error       { ensureID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error   { ensureID(&i.ID); return nil }
func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error { ensureID(&e.ID); return nil }

// Migrate runs auto migration for every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Category{},
		&Product{},
		&User{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
	)
}
