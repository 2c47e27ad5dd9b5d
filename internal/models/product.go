package models

import "time"

// Product represents an item listed for sale. Ids are assigned by storage,
// monotonically from 1, and are never reused even after soft deletion.
type Product struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" validate:"required,min=1,max=100"`
	Photo       string    `json:"photo" validate:"omitempty,max=500"`
	Description string    `json:"description" validate:"omitempty,max=500"`
	Price       uint64    `json:"price"` // smallest currency unit
	Seller      string    `json:"seller" gorm:"index" validate:"required"`
	Buyer       string    `json:"buyer"` // set only while reserved or sold
	IsDeleted   bool      `json:"is_deleted"`
	IsReserved  bool      `json:"is_reserved"`
	IsSold      bool      `json:"is_sold"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reservable reports whether the product can accept a new reservation.
func (p *Product) Reservable() bool {
	return !p.IsDeleted && !p.IsReserved && !p.IsSold
}
