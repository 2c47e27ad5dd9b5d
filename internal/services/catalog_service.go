package services

import (
	"fmt"

	"lapak/internal/models"
	"lapak/internal/repositories"
)

// CatalogService owns product records and their sale-state flags.
// It performs no fund movement; the escrow service orchestrates it
// together with the order ledger.
type CatalogService struct {
	repo repositories.ProductRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ProductRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// CreateProduct stores a new listing with all flags false and returns its id.
func (s *CatalogService) CreateProduct(name, photo, description string, price uint64, seller string) (uint64, error) {
	if name == "" {
		return 0, fmt.Errorf("product name is required: %w", models.ErrValidation)
	}
	if seller == "" {
		return 0, fmt.Errorf("product seller is required: %w", models.ErrValidation)
	}
	product := &models.Product{
		Name:        name,
		Photo:       photo,
		Description: description,
		Price:       price,
		Seller:      seller,
	}
	if err := s.repo.Create(product); err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return product.ID, nil
}

// Get retrieves a single product by its id.
func (s *CatalogService) Get(id uint64) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// List returns all listings that have not been soft-deleted.
func (s *CatalogService) List() ([]models.Product, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	visible := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !p.IsDeleted {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// ListSold returns all products that have been sold.
func (s *CatalogService) ListSold() ([]models.Product, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	var sold []models.Product
	for _, p := range products {
		if p.IsSold {
			sold = append(sold, p)
		}
	}
	return sold, nil
}

// ListBySeller returns the non-deleted listings of one seller.
func (s *CatalogService) ListBySeller(seller string) ([]models.Product, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	var mine []models.Product
	for _, p := range products {
		if p.Seller == seller && !p.IsDeleted {
			mine = append(mine, p)
		}
	}
	return mine, nil
}

// MarkReserved locks the product for the given buyer. The product must exist,
// not be soft-deleted, and not already be reserved or sold.
func (s *CatalogService) MarkReserved(id uint64, buyer string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product.IsDeleted {
		return fmt.Errorf("product %d: %w", id, models.ErrProductDeleted)
	}
	if product.IsReserved || product.IsSold {
		return fmt.Errorf("product %d: %w", id, models.ErrAlreadyReserved)
	}
	product.IsReserved = true
	product.Buyer = buyer
	return s.repo.Update(product)
}

// MarkUnreserved clears the reservation so the product can be reserved again.
// Only valid on a product currently reserved and not sold.
func (s *CatalogService) MarkUnreserved(id uint64) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if !product.IsReserved || product.IsSold {
		return fmt.Errorf("product %d is not reserved: %w", id, models.ErrInvalidState)
	}
	product.IsReserved = false
	product.Buyer = ""
	return s.repo.Update(product)
}

// MarkSold flips the permanent sold flag. Requires a live reservation;
// the flag is monotonic and never reset.
func (s *CatalogService) MarkSold(id uint64) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if !product.IsReserved || product.IsSold {
		return fmt.Errorf("product %d cannot be marked sold: %w", id, models.ErrInvalidState)
	}
	product.IsSold = true
	return s.repo.Update(product)
}

// Delete soft-deletes a listing. Only the seller may delete, and only while
// the product is neither reserved nor sold. The row itself is kept so the
// id is never reused.
func (s *CatalogService) Delete(id uint64, seller string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product.Seller != seller {
		return fmt.Errorf("caller is not the seller of product %d: %w", id, models.ErrForbidden)
	}
	if product.IsDeleted {
		return fmt.Errorf("product %d: %w", id, models.ErrProductDeleted)
	}
	if product.IsReserved || product.IsSold {
		return fmt.Errorf("product %d: %w", id, models.ErrAlreadyReserved)
	}
	product.IsDeleted = true
	return s.repo.Update(product)
}
