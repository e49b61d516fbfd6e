package repository

import (
	"fmt"
	"testing"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTestUser(t *testing.T, conn *gorm.DB, email string) *model.User {
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

func createTestCategory(t *testing.T, conn *gorm.DB, slug string) *model.Category {
	t.Helper()
	category := &model.Category{Name: slug, Slug: slug}
	require.NoError(t, conn.Create(category).Error)
	return category
}

func createTestProduct(t *testing.T, conn *gorm.DB, sku, price string, stock int) *model.Product {
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

func createTestVariant(t *testing.T, conn *gorm.DB, productID uint, name, adjustment string, stock int) *model.ProductVariant {
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
