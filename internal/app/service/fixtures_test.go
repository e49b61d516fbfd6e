package service

import (
	"fmt"
	"testing"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testRepos struct {
	db         *gorm.DB
	carts      repository.CartRepository
	products   repository.ProductRepository
	orders     repository.OrderRepository
	users      repository.UserRepository
	addresses  repository.AddressRepository
	categories repository.CategoryRepository
}

func setupServiceTest(t *testing.T) *testRepos {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return &testRepos{
		db:         testDB,
		carts:      repository.NewCartRepository(testDB),
		products:   repository.NewProductRepository(testDB),
		orders:     repository.NewOrderRepository(testDB),
		users:      repository.NewUserRepository(testDB),
		addresses:  repository.NewAddressRepository(testDB),
		categories: repository.NewCategoryRepository(testDB),
	}
}

func (r *testRepos) cartService() CartService {
	return NewCartService(r.db, r.carts, r.products)
}

func (r *testRepos) orderService(opts ...OrderServiceOption) OrderService {
	return NewOrderService(r.db, r.orders, r.carts, r.products, r.addresses, opts...)
}

func createUser(t *testing.T, conn *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         model.RoleUser,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func createProduct(t *testing.T, conn *gorm.DB, sku, price string, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          "Product " + sku,
		Slug:          fmt.Sprintf("product-%s", sku),
		SKU:           sku,
		Price:         model.MustMoney(price),
		StockQuantity: stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func createVariant(t *testing.T, conn *gorm.DB, productID uint, name, adjustment string, stock int) *model.ProductVariant {
	t.Helper()
	variant := &model.ProductVariant{
		ProductID:       productID,
		Name:            name,
		PriceAdjustment: model.MustMoney(adjustment),
		StockQuantity:   stock,
	}
	require.NoError(t, conn.Create(variant).Error)
	return variant
}

func stockOf(t *testing.T, conn *gorm.DB, productID uint) int {
	t.Helper()
	var product model.Product
	require.NoError(t, conn.Unscoped().First(&product, productID).Error)
	return product.StockQuantity
}

func variantStockOf(t *testing.T, conn *gorm.DB, variantID uint) int {
	t.Helper()
	var variant model.ProductVariant
	require.NoError(t, conn.First(&variant, variantID).Error)
	return variant.StockQuantity
}

func uintPtr(v uint) *uint { return &v }
