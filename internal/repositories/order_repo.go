package repositories

import (
	"lapak/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id uint64) (*models.Order, error)
	GetByBuyer(buyer string) ([]models.Order, error)
	Create(order *models.Order) error
	Update(order *models.Order) error
	// Orders are never deleted; terminal orders remain the audit record.
}
