package models

import "time"

// Order records a single escrow agreement: the buyer's deposit against one
// product. IsReleased and IsCanceled are terminal and mutually exclusive;
// each is set at most once, and funds move only after the flag is committed.
type Order struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID    uint64    `json:"product_id" gorm:"index"`
	Buyer        string    `json:"buyer" gorm:"index"`
	Amount       uint64    `json:"amount"` // value actually deposited, immutable
	ShippingInfo string    `json:"shipping_info"`
	IsSent       bool      `json:"is_sent"`
	IsReleased   bool      `json:"is_released"`
	IsCanceled   bool      `json:"is_canceled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Terminal reports whether the order has reached a final state.
func (o *Order) Terminal() bool {
	return o.IsReleased || o.IsCanceled
}
