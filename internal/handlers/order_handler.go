package handlers

import (
	"fmt"
	"log"

	"lapak/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for escrow orders.
type OrderHandler struct {
	escrow   *services.EscrowService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(escrow *services.EscrowService) *OrderHandler {
	return &OrderHandler{
		escrow:   escrow,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/all", h.HandleGetAllOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleReserveProduct)
	orderRoutes.Post("/:id/sent", h.HandleConfirmSent)
	orderRoutes.Post("/:id/received", h.HandleConfirmReceived)
	orderRoutes.Post("/:id/cancel", h.HandleCancelReservation)
}

// ReserveRequest represents the request body for reserving a product.
// The buyer is the authenticated caller; value is the escrow deposit and
// must equal the listed price exactly.
type ReserveRequest struct {
	ProductID    uint64 `json:"product_id" validate:"required"`
	ShippingInfo string `json:"shipping_info" validate:"required,max=500"`
	Value        uint64 `json:"value"`
}

// HandleGetOrders retrieves the authenticated caller's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.escrow.ListOrdersByBuyer(principal(c))
	if err != nil {
		log.Printf("Error getting orders: %v", err)
		return errorJSON(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetAllOrders retrieves every order in the ledger. Operator view;
// in a larger deployment this would sit behind a role check.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, err := h.escrow.ListOrders()
	if err != nil {
		log.Printf("Error getting all orders: %v", err)
		return errorJSON(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order id",
			"error":   err.Error(),
		})
	}
	order, err := h.escrow.GetOrder(orderID)
	if err != nil {
		log.Printf("Error getting order %d: %v", orderID, err)
		return errorJSON(c, fmt.Sprintf("Could not retrieve order %d", orderID), err)
	}
	return c.JSON(order)
}

// HandleReserveProduct deposits the caller's funds into escrow and locks the
// product, creating a new order.
func (h *OrderHandler) HandleReserveProduct(c *fiber.Ctx) error {
	var req ReserveRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing reserve request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	buyer := principal(c)
	orderID, err := h.escrow.ReserveProduct(req.ProductID, buyer, req.ShippingInfo, req.Value)
	if err != nil {
		log.Printf("Error reserving product %d for %s: %v", req.ProductID, buyer, err)
		return errorJSON(c, "Could not reserve product", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Product reserved successfully",
		"order_id": orderID,
	})
}

// HandleConfirmSent records the seller's shipment assertion.
func (h *OrderHandler) HandleConfirmSent(c *fiber.Ctx) error {
	orderID, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order id",
			"error":   err.Error(),
		})
	}
	if err := h.escrow.ConfirmSent(orderID, principal(c)); err != nil {
		log.Printf("Error marking order %d as sent: %v", orderID, err)
		return errorJSON(c, fmt.Sprintf("Could not mark order %d as sent", orderID), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %d marked as sent", orderID),
	})
}

// HandleConfirmReceived confirms receipt and releases the escrowed funds to
// the seller.
func (h *OrderHandler) HandleConfirmReceived(c *fiber.Ctx) error {
	orderID, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order id",
			"error":   err.Error(),
		})
	}
	if err := h.escrow.ConfirmReceived(orderID, principal(c)); err != nil {
		log.Printf("Error confirming receipt of order %d: %v", orderID, err)
		return errorJSON(c, fmt.Sprintf("Could not confirm receipt of order %d", orderID), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %d confirmed, funds released to seller", orderID),
	})
}

// HandleCancelReservation cancels the reservation and refunds the buyer.
func (h *OrderHandler) HandleCancelReservation(c *fiber.Ctx) error {
	orderID, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid order id",
			"error":   err.Error(),
		})
	}
	if err := h.escrow.CancelReservation(orderID, principal(c)); err != nil {
		log.Printf("Error canceling order %d: %v", orderID, err)
		return errorJSON(c, fmt.Sprintf("Could not cancel order %d", orderID), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %d canceled, deposit refunded", orderID),
	})
}
