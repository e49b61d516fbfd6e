package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	"github.com/mdtstech/nexus-techhub-backend/internal/db"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
	"github.com/mdtstech/nexus-techhub-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "controller-test-secret"

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *middleware.AuthMiddleware

	carts      service.CartService
	orders     service.OrderService
	users      service.UserService
	addresses  service.AddressService
	categories service.CategoryService
	products   service.ProductService

	productRepo repository.ProductRepository
}

func setupControllerTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)
	addressRepo := repository.NewAddressRepository(testDB)
	categoryRepo := repository.NewCategoryRepository(testDB)

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())

	return &testEnv{
		db:          testDB,
		router:      router,
		auth:        middleware.NewAuthMiddleware(testJWTSecret, nil),
		carts:       service.NewCartService(testDB, cartRepo, productRepo),
		orders:      service.NewOrderService(testDB, orderRepo, cartRepo, productRepo, addressRepo),
		users:       service.NewUserService(testDB, userRepo, addressRepo, orderRepo),
		addresses:   service.NewAddressService(testDB, addressRepo),
		categories:  service.NewCategoryService(testDB, categoryRepo, productRepo),
		products:    service.NewProductService(testDB, productRepo, categoryRepo),
		productRepo: productRepo,
	}
}

func (e *testEnv) createUser(t *testing.T, email string, role model.UserRole) *model.User {
	t.Helper()
	hash, err := util.HashPassword("password123")
	require.NoError(t, err)
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createProduct(t *testing.T, sku, price string, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          "Product " + sku,
		Slug:          fmt.Sprintf("product-%s", sku),
		SKU:           sku,
		Price:         model.MustMoney(price),
		StockQuantity: stock,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	var product model.Product
	require.NoError(t, e.db.Unscoped().First(&product, productID).Error)
	return product.StockQuantity
}

func bearer(t *testing.T, user *model.User) string {
	t.Helper()
	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tokens.AccessToken
}

type request struct {
	method  string
	path    string
	body    interface{}
	auth    string
	session string
}

func (e *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.auth != "" {
		req.Header.Set("Authorization", r.auth)
	}
	if r.session != "" {
		req.Header.Set(middleware.SessionIDHeader, r.session)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, w, &body)
	return body.Error
}

// cartBody mirrors the cart view with money kept as strings.
type cartBody struct {
	Cart struct {
		ID        uint   `json:"id"`
		UserID    *uint  `json:"user_id"`
		SessionID string `json:"session_id"`
		Subtotal  string `json:"subtotal"`
		ItemCount int    `json:"item_count"`
		Items     []struct {
			ID        uint   `json:"id"`
			ProductID uint   `json:"product_id"`
			Quantity  int    `json:"quantity"`
			UnitPrice string `json:"unit_price"`
			Total     string `json:"total"`
		} `json:"items"`
	} `json:"cart"`
}

func pathf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
