package models

import "gorm.io/gorm"

// User represents a registered account. The wallet address is the principal
// presented to the escrow ledger for every authorization check.
type User struct {
	ID            string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username      string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email         string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password      string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	WalletAddress string `json:"wallet_address" gorm:"uniqueIndex;type:varchar(64)" validate:"required,min=6,max=64"`
	gorm.Model           // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
