package handlers

import (
	"fmt"
	"log"
	"strconv"

	"lapak/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for product listings.
type ProductHandler struct {
	escrow   *services.EscrowService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(escrow *services.EscrowService) *ProductHandler {
	return &ProductHandler{
		escrow:   escrow,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/sold", h.HandleGetSoldProducts)
	productRoutes.Get("/mine", h.HandleGetMyProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// CreateProductRequest represents the request body for creating a listing.
// The seller is never taken from the body; it is the authenticated caller.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Photo       string `json:"photo" validate:"omitempty,max=500"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Price       uint64 `json:"price"`
}

// HandleGetProducts retrieves all non-deleted listings.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.escrow.ListProducts()
	if err != nil {
		log.Printf("Error getting products: %v", err)
		return errorJSON(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetSoldProducts retrieves all sold products.
func (h *ProductHandler) HandleGetSoldProducts(c *fiber.Ctx) error {
	products, err := h.escrow.ListSoldProducts()
	if err != nil {
		log.Printf("Error getting sold products: %v", err)
		return errorJSON(c, "Could not retrieve sold products", err)
	}
	return c.JSON(products)
}

// HandleGetMyProducts retrieves the authenticated seller's own listings.
func (h *ProductHandler) HandleGetMyProducts(c *fiber.Ctx) error {
	products, err := h.escrow.ListProductsBySeller(principal(c))
	if err != nil {
		log.Printf("Error getting seller products: %v", err)
		return errorJSON(c, "Could not retrieve your products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product id",
			"error":   err.Error(),
		})
	}
	product, err := h.escrow.GetProduct(productID)
	if err != nil {
		log.Printf("Error getting product %d: %v", productID, err)
		return errorJSON(c, fmt.Sprintf("Could not retrieve product %d", productID), err)
	}
	return c.JSON(product)
}

// HandleCreateProduct lists a new item for sale by the authenticated caller.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create product request body: %v", err)
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

	seller := principal(c)
	productID, err := h.escrow.CreateProduct(req.Name, req.Photo, req.Description, req.Price, seller)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return errorJSON(c, "Could not create product", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Product created successfully",
		"product_id": productID,
	})
}

// HandleDeleteProduct soft-deletes a listing owned by the caller.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product id",
			"error":   err.Error(),
		})
	}

	seller := principal(c)
	if err := h.escrow.DeleteProduct(productID, seller); err != nil {
		log.Printf("Error deleting product %d: %v", productID, err)
		return errorJSON(c, fmt.Sprintf("Could not delete product %d", productID), err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %d deleted successfully", productID),
	})
}

// principal returns the caller's wallet address set by the auth middleware.
func principal(c *fiber.Ctx) string {
	address, _ := c.Locals("address").(string)
	return address
}

// parseID parses a route id parameter.
func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
