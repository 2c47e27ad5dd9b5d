package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"lapak/internal/models"

	"github.com/google/uuid"
)

// Treasury is the value-movement collaborator of the escrow service.
// Hold moves a deposit from the buyer into escrow custody during
// reservation; PayOut moves escrowed funds out to a seller or back to
// a buyer and is always the last, irreversible step of an operation.
type Treasury interface {
	Hold(from string, amount uint64) error
	PayOut(to string, amount uint64) error
}

// EventPublisher publishes escrow events. pkg/rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// EscrowService is the façade over the product catalog and the order ledger.
// All mutating operations run under one mutex: the ledger is a single
// sequential authority, so concurrent reservations or confirmations on the
// same product or order are linearized in arrival order and the losers fail
// their precondition checks with no side effect.
type EscrowService struct {
	catalog  *CatalogService
	ledger   *LedgerService
	treasury Treasury
	mq       EventPublisher // optional; events are best-effort

	mu sync.Mutex
}

// NewEscrowService creates a new EscrowService. mq may be nil, in which case
// event publication is skipped.
func NewEscrowService(catalog *CatalogService, ledger *LedgerService, treasury Treasury, mq EventPublisher) *EscrowService {
	return &EscrowService{
		catalog:  catalog,
		ledger:   ledger,
		treasury: treasury,
		mq:       mq,
	}
}

// CreateProduct lists a new item for sale. No escrow involvement.
func (s *EscrowService) CreateProduct(name, photo, description string, price uint64, seller string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	productID, err := s.catalog.CreateProduct(name, photo, description, price, seller)
	if err != nil {
		return 0, err
	}
	s.publish("product.created", map[string]interface{}{
		"product_id": productID,
		"seller":     seller,
		"price":      price,
	})
	return productID, nil
}

// ReserveProduct locks a product for the buyer against an exact-price deposit
// and creates the escrow order. Validation happens fully before any mutation:
// on any error the product, the ledger and the treasury are unchanged.
func (s *EscrowService) ReserveProduct(productID uint64, buyer, shippingInfo string, value uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.catalog.Get(productID)
	if err != nil {
		return 0, err
	}
	if product.IsDeleted {
		return 0, fmt.Errorf("product %d: %w", productID, models.ErrProductDeleted)
	}
	if product.IsReserved || product.IsSold {
		return 0, fmt.Errorf("product %d: %w", productID, models.ErrAlreadyReserved)
	}
	// Exact deposit only: no partial or over-deposits. Validated against the
	// live price to avoid stale-price exploits.
	if value != product.Price {
		return 0, fmt.Errorf("deposited %d for product %d priced %d: %w", value, productID, product.Price, models.ErrAmountMismatch)
	}

	if err := s.treasury.Hold(buyer, value); err != nil {
		return 0, fmt.Errorf("failed to take deposit into escrow: %w", err)
	}

	if err := s.catalog.MarkReserved(productID, buyer); err != nil {
		// Deposit taken but nothing reserved: give it straight back.
		s.refundHold(buyer, value)
		return 0, err
	}
	orderID, err := s.ledger.CreateOrder(productID, buyer, value, shippingInfo)
	if err != nil {
		// Reservation and order are one atomic unit: unwind the reservation
		// and the deposit so neither half is left applied.
		if uerr := s.catalog.MarkUnreserved(productID); uerr != nil {
			log.Printf("CRITICAL: failed to unwind reservation of product %d: %v", productID, uerr)
		}
		s.refundHold(buyer, value)
		return 0, err
	}

	s.publish("order.reserved", map[string]interface{}{
		"order_id":   orderID,
		"product_id": productID,
		"buyer":      buyer,
		"amount":     value,
	})
	return orderID, nil
}

// ConfirmReceived is the buyer's attestation that the goods arrived: the
// order is released, the product marked sold, and only then is the escrowed
// amount paid to the seller. The flag commit before the transfer is the
// reentrancy defense; a transfer failure after commit is fatal and surfaces
// as ErrReconciliation with the committed state left intact.
func (s *EscrowService) ConfirmReceived(orderID uint64, buyer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, productID, err := s.ledger.Release(orderID, buyer)
	if err != nil {
		return err
	}
	if err := s.catalog.MarkSold(productID); err != nil {
		// The release flag is already committed; the sold flag follows it.
		log.Printf("CRITICAL: order %d released but product %d not marked sold: %v", orderID, productID, err)
	}

	product, err := s.catalog.Get(productID)
	if err != nil {
		return s.reconcile(orderID, "", amount, err)
	}
	if err := s.treasury.PayOut(product.Seller, amount); err != nil {
		return s.reconcile(orderID, product.Seller, amount, err)
	}

	s.publish("order.released", map[string]interface{}{
		"order_id":   orderID,
		"product_id": productID,
		"seller":     product.Seller,
		"amount":     amount,
	})
	return nil
}

// ConfirmSent records the seller's shipment assertion. It never gates release
// or cancellation; shipment and confirmation are tracked independently.
func (s *EscrowService) ConfirmSent(orderID uint64, seller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.MarkSent(orderID, seller); err != nil {
		return err
	}
	s.publish("order.sent", map[string]interface{}{
		"order_id": orderID,
		"seller":   seller,
	})
	return nil
}

// CancelReservation refunds the buyer and frees the product for a new
// reservation. The cancel flag commits before the refund transfer, same
// ordering rule as ConfirmReceived.
func (s *EscrowService) CancelReservation(orderID uint64, requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, productID, err := s.ledger.Cancel(orderID, requester)
	if err != nil {
		return err
	}
	if err := s.catalog.MarkUnreserved(productID); err != nil {
		log.Printf("CRITICAL: order %d canceled but product %d still reserved: %v", orderID, productID, err)
	}

	if err := s.treasury.PayOut(requester, amount); err != nil {
		return s.reconcile(orderID, requester, amount, err)
	}

	s.publish("order.canceled", map[string]interface{}{
		"order_id":   orderID,
		"product_id": productID,
		"buyer":      requester,
		"amount":     amount,
	})
	return nil
}

// DeleteProduct soft-deletes a listing on behalf of its seller.
func (s *EscrowService) DeleteProduct(productID uint64, seller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.catalog.Delete(productID, seller); err != nil {
		return err
	}
	s.publish("product.deleted", map[string]interface{}{
		"product_id": productID,
		"seller":     seller,
	})
	return nil
}

// GetProduct retrieves a product by id.
func (s *EscrowService) GetProduct(productID uint64) (*models.Product, error) {
	return s.catalog.Get(productID)
}

// GetOrder retrieves an order by id.
func (s *EscrowService) GetOrder(orderID uint64) (*models.Order, error) {
	return s.ledger.Get(orderID)
}

// ListProducts returns all non-deleted listings.
func (s *EscrowService) ListProducts() ([]models.Product, error) {
	return s.catalog.List()
}

// ListSoldProducts returns all sold products.
func (s *EscrowService) ListSoldProducts() ([]models.Product, error) {
	return s.catalog.ListSold()
}

// ListProductsBySeller returns one seller's non-deleted listings.
func (s *EscrowService) ListProductsBySeller(seller string) ([]models.Product, error) {
	return s.catalog.ListBySeller(seller)
}

// ListOrders returns every order in the ledger, for the operator view.
func (s *EscrowService) ListOrders() ([]models.Order, error) {
	return s.ledger.List()
}

// ListOrdersByBuyer returns the orders funded by one buyer.
func (s *EscrowService) ListOrdersByBuyer(buyer string) ([]models.Order, error) {
	return s.ledger.ListByBuyer(buyer)
}

// reconcile handles the narrow fatal case: a terminal flag is committed but
// the value transfer failed. The flag stays set (it is the authoritative
// record of entitlement), the transfer is never retried implicitly, and the
// obligation is surfaced loudly for manual settlement.
func (s *EscrowService) reconcile(orderID uint64, payee string, amount uint64, cause error) error {
	log.Printf("RECONCILIATION REQUIRED: order %d committed but transfer of %d to %q failed: %v", orderID, amount, payee, cause)
	s.publish("escrow.reconciliation_required", map[string]interface{}{
		"order_id": orderID,
		"payee":    payee,
		"amount":   amount,
		"cause":    cause.Error(),
	})
	return fmt.Errorf("order %d: transfer of %d to %q failed: %v: %w", orderID, amount, payee, cause, models.ErrReconciliation)
}

// refundHold returns a deposit taken during a reservation that did not
// complete. Failure here is the same lost-obligation case as reconcile.
func (s *EscrowService) refundHold(buyer string, amount uint64) {
	if err := s.treasury.PayOut(buyer, amount); err != nil {
		log.Printf("RECONCILIATION REQUIRED: refund of unapplied deposit %d to %q failed: %v", amount, buyer, err)
	}
}

// publish sends an escrow event, best-effort. A publish failure logs a
// warning and never fails the operation.
func (s *EscrowService) publish(event string, payload map[string]interface{}) {
	if s.mq == nil {
		return
	}
	payload["event_id"] = uuid.New().String()
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", event, err)
		return
	}
	if err := s.mq.Publish("escrow", event, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}
