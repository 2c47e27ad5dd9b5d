package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"lapak/internal/handlers"
	"lapak/internal/middleware"
	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"
	"lapak/internal/treasury"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all
// handlers/services, plus the treasury so tests can fund buyer accounts.
func setupApp() (*fiber.App, *treasury.MemoryTreasury, error) {
	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// Initialize in-memory SQLite database
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	// Auto-migrate models
	err = db.AutoMigrate(&models.Product{}, &models.Order{}, &models.User{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	// Initialize Repositories
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	// Initialize Services
	catalogService := services.NewCatalogService(productRepo)
	ledgerService := services.NewLedgerService(orderRepo, productRepo)
	escrowTreasury := treasury.NewMemoryTreasury()
	escrowService := services.NewEscrowService(catalogService, ledgerService, escrowTreasury, nil) // nil for RabbitMQ client
	authService := services.NewAuthService(userRepo, jwtSecret)

	// Initialize Handlers
	productHandler := handlers.NewProductHandler(escrowService)
	orderHandler := handlers.NewOrderHandler(escrowService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()

	// API Routes
	apiV1 := app.Group("/api/v1")

	// Authentication routes (public)
	authHandler.RegisterRoutes(apiV1)

	// Protected routes (require JWT authentication)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes)

	return app, escrowTreasury, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// registerAndLogin creates a user bound to the given wallet address and
// returns a bearer token for it.
func registerAndLogin(t *testing.T, app *fiber.App, username, address string) string {
	t.Helper()

	user := map[string]string{
		"username":       username,
		"email":          username + "@example.com",
		"password":       "password123",
		"wallet_address": address,
	}
	jsonBody, _ := json.Marshal(user)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	login := map[string]string{"username": username, "password": "password123"}
	jsonBody, _ = json.Marshal(login)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

// doJSON performs an authenticated JSON request and decodes the response body.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestEscrowEndpointsRequireAuth(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestFullEscrowFlowOverHTTP(t *testing.T) {
	app, tr, err := setupApp()
	require.NoError(t, err)

	sellerToken := registerAndLogin(t, app, "flowseller", "0xflowseller")
	buyerToken := registerAndLogin(t, app, "flowbuyer", "0xflowbuyer")
	tr.Credit("0xflowbuyer", 1000)

	// Seller lists a product
	status, created := doJSON(t, app, http.MethodPost, "/api/v1/products", sellerToken, map[string]interface{}{
		"name":        "Camera",
		"photo":       "http://example.com/camera.jpg",
		"description": "Mirrorless camera",
		"price":       1000,
	})
	require.Equal(t, http.StatusCreated, status)
	productID := uint64(created["product_id"].(float64))

	// Buyer reserves with a wrong deposit: rejected, no order
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders", buyerToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Buyer, 123 Street",
		"value":         999,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Buyer reserves with the exact price
	status, reserved := doJSON(t, app, http.MethodPost, "/api/v1/orders", buyerToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Buyer, 123 Street",
		"value":         1000,
	})
	require.Equal(t, http.StatusCreated, status)
	orderID := uint64(reserved["order_id"].(float64))

	// A second buyer cannot reserve the same product
	otherToken := registerAndLogin(t, app, "flowother", "0xflowother")
	tr.Credit("0xflowother", 1000)
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders", otherToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Other, 456 Avenue",
		"value":         1000,
	})
	assert.Equal(t, http.StatusConflict, status)

	// Seller marks the order sent; the buyer cannot
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/sent", orderID), buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/sent", orderID), sellerToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// Buyer confirms receipt: funds released to the seller
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/received", orderID), buyerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(1000), tr.Balance("0xflowseller"))
	assert.Equal(t, uint64(0), tr.Held())

	// Confirming twice is a conflict
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/received", orderID), buyerToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	// The product shows up as sold
	status, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", productID), buyerToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCancelFlowOverHTTP(t *testing.T) {
	app, tr, err := setupApp()
	require.NoError(t, err)

	sellerToken := registerAndLogin(t, app, "cxseller", "0xcxseller")
	buyerToken := registerAndLogin(t, app, "cxbuyer", "0xcxbuyer")
	tr.Credit("0xcxbuyer", 500)

	status, created := doJSON(t, app, http.MethodPost, "/api/v1/products", sellerToken, map[string]interface{}{
		"name":  "Tripod",
		"price": 500,
	})
	require.Equal(t, http.StatusCreated, status)
	productID := uint64(created["product_id"].(float64))

	status, reserved := doJSON(t, app, http.MethodPost, "/api/v1/orders", buyerToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Buyer, 123 Street",
		"value":         500,
	})
	require.Equal(t, http.StatusCreated, status)
	orderID := uint64(reserved["order_id"].(float64))

	// Only the buyer may cancel
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), sellerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), buyerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(500), tr.Balance("0xcxbuyer"))
	assert.Equal(t, uint64(0), tr.Held())

	// Product reservable again: another buyer succeeds this time
	otherToken := registerAndLogin(t, app, "cxother", "0xcxother")
	tr.Credit("0xcxother", 500)
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders", otherToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Other, 456 Avenue",
		"value":         500,
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)

	token := registerAndLogin(t, app, "nfuser", "0xnfuser")

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/products/999999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/orders/999999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Mutations against unknown ids report the same way
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/999999/cancel", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListingRoutesOverHTTP(t *testing.T) {
	app, tr, err := setupApp()
	require.NoError(t, err)

	aliceToken := registerAndLogin(t, app, "lstalice", "0xlstalice")
	bobToken := registerAndLogin(t, app, "lstbob", "0xlstbob")
	tr.Credit("0xlstbob", 300)

	status, created := doJSON(t, app, http.MethodPost, "/api/v1/products", aliceToken, map[string]interface{}{
		"name":  "Lens",
		"price": 300,
	})
	require.Equal(t, http.StatusCreated, status)
	productID := uint64(created["product_id"].(float64))

	// /products/mine shows only the caller's own listings
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/mine", nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mine))
	resp.Body.Close()
	require.Len(t, mine, 1)
	assert.Equal(t, productID, mine[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/mine", nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bobs []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bobs))
	resp.Body.Close()
	assert.Empty(t, bobs)

	// /orders/all exposes the operator view of the ledger
	status, reserved := doJSON(t, app, http.MethodPost, "/api/v1/orders", bobToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Bob, 789 Road",
		"value":         300,
	})
	require.Equal(t, http.StatusCreated, status)
	orderID := uint64(reserved["order_id"].(float64))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/all", nil)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []models.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	resp.Body.Close()

	found := false
	for _, o := range all {
		if o.ID == orderID {
			found = true
		}
	}
	assert.True(t, found, "operator order listing should include the new order")
}

func TestDeleteProductOverHTTP(t *testing.T) {
	app, tr, err := setupApp()
	require.NoError(t, err)

	sellerToken := registerAndLogin(t, app, "delseller", "0xdelseller")
	buyerToken := registerAndLogin(t, app, "delbuyer", "0xdelbuyer")
	tr.Credit("0xdelbuyer", 100)

	status, created := doJSON(t, app, http.MethodPost, "/api/v1/products", sellerToken, map[string]interface{}{
		"name":  "Cable",
		"price": 100,
	})
	require.Equal(t, http.StatusCreated, status)
	productID := uint64(created["product_id"].(float64))

	// Only the seller may delete
	status, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", productID), buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", productID), sellerToken, nil)
	require.Equal(t, http.StatusOK, status)

	// Reserving a deleted product is a conflict
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders", buyerToken, map[string]interface{}{
		"product_id":    productID,
		"shipping_info": "Buyer",
		"value":         100,
	})
	assert.Equal(t, http.StatusConflict, status)
}
