package services

import (
	"fmt"

	"lapak/internal/models"
	"lapak/internal/repositories"
)

// LedgerService owns order records and the escrow state machine:
// Created -> {Released | Canceled}, with an orthogonal sent flag.
// Release and Cancel only flip the terminal flag and report the amount;
// the actual value transfer happens afterwards in the escrow service,
// never before the flag is committed.
type LedgerService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository) *LedgerService {
	return &LedgerService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// CreateOrder records a funded reservation. Pure record creation: the amount
// is validated against the live product price by the escrow service, not here.
func (s *LedgerService) CreateOrder(productID uint64, buyer string, amount uint64, shippingInfo string) (uint64, error) {
	order := &models.Order{
		ProductID:    productID,
		Buyer:        buyer,
		Amount:       amount,
		ShippingInfo: shippingInfo,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return order.ID, nil
}

// Get retrieves a single order by its id.
func (s *LedgerService) Get(id uint64) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// List returns all orders.
func (s *LedgerService) List() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// ListByBuyer returns every order funded by the given buyer.
func (s *LedgerService) ListByBuyer(buyer string) ([]models.Order, error) {
	return s.orderRepo.GetByBuyer(buyer)
}

// MarkSent records the seller's shipment assertion. Only the seller of the
// order's product may call it, and only while the order is non-terminal.
// A second call is rejected rather than silently accepted, to surface
// caller bugs.
func (s *LedgerService) MarkSent(orderID uint64, caller string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	product, err := s.productRepo.GetByID(order.ProductID)
	if err != nil {
		return err
	}
	if product.Seller != caller {
		return fmt.Errorf("caller is not the seller of order %d: %w", orderID, models.ErrForbidden)
	}
	if order.Terminal() {
		return fmt.Errorf("order %d is terminal: %w", orderID, models.ErrInvalidState)
	}
	if order.IsSent {
		return fmt.Errorf("order %d already marked sent: %w", orderID, models.ErrInvalidState)
	}
	order.IsSent = true
	return s.orderRepo.Update(order)
}

// Release commits the payout entitlement: it flips IsReleased and returns the
// amount owed to the seller plus the product id. The committed flag is the
// authoritative record; the transfer itself must follow, never precede it.
func (s *LedgerService) Release(orderID uint64, buyer string) (amount uint64, productID uint64, err error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return 0, 0, err
	}
	if order.Buyer != buyer {
		return 0, 0, fmt.Errorf("caller is not the buyer of order %d: %w", orderID, models.ErrForbidden)
	}
	if order.Terminal() {
		return 0, 0, fmt.Errorf("order %d is terminal: %w", orderID, models.ErrInvalidState)
	}
	order.IsReleased = true
	if err := s.orderRepo.Update(order); err != nil {
		return 0, 0, err
	}
	return order.Amount, order.ProductID, nil
}

// Cancel commits the refund entitlement: it flips IsCanceled and returns the
// amount owed back to the buyer plus the product id. Same ordering rule as
// Release: the refund transfer follows the committed flag.
func (s *LedgerService) Cancel(orderID uint64, requester string) (amount uint64, productID uint64, err error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return 0, 0, err
	}
	if order.Buyer != requester {
		return 0, 0, fmt.Errorf("requester is not the buyer of order %d: %w", orderID, models.ErrForbidden)
	}
	if order.Terminal() {
		return 0, 0, fmt.Errorf("order %d is terminal: %w", orderID, models.ErrInvalidState)
	}
	order.IsCanceled = true
	if err := s.orderRepo.Update(order); err != nil {
		return 0, 0, err
	}
	return order.Amount, order.ProductID, nil
}
