package repositories

import (
	"lapak/internal/models"
)

// ProductRepository defines the interface for product data access.
// Ids are assigned by the repository itself, monotonically from 1;
// callers never supply an id at creation time.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id uint64) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	// No hard delete: products are soft-deleted via Update(IsDeleted=true).
}
