package repository

import (
	"context"
	"testing"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestProductRepository_CreateWithVariants(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()
	category := createTestCategory(t, conn, "iphone-parts")

	product := &model.Product{
		CategoryID:    &category.ID,
		Name:          "iPhone 13 OLED Screen",
		Slug:          "iphone-13-oled-screen",
		SKU:           "IP13-OLED",
		Price:         model.MustMoney("129.99"),
		StockQuantity: 12,
		Variants: []model.ProductVariant{
			{Name: "Aftermarket", PriceAdjustment: model.ZeroMoney(), StockQuantity: 8},
			{Name: "Genuine", PriceAdjustment: model.MustMoney("40.00"), StockQuantity: 4},
		},
	}
	require.NoError(t, repo.Create(ctx, product))
	assert.NotZero(t, product.ID)

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "129.99", found.Price.String())
	require.NotNil(t, found.Category)
	assert.Equal(t, "iphone-parts", found.Category.Slug)
	require.Len(t, found.Variants, 2)
	assert.Equal(t, "Genuine", found.Variants[1].Name)

	variant, err := repo.FindVariant(ctx, product.ID, found.Variants[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "40.00", variant.PriceAdjustment.String())

	_, err = repo.FindVariant(ctx, product.ID+100, found.Variants[1].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_List(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()
	tools := createTestCategory(t, conn, "repair-tools")

	screwdriver := createTestProduct(t, conn, "TOOL-1", "9.99", 50)
	screwdriver.CategoryID = &tools.ID
	screwdriver.Description = "Pentalobe screwdriver"
	require.NoError(t, repo.Update(ctx, screwdriver))
	createTestProduct(t, conn, "BAT-2", "19.99", 5)
	createTestProduct(t, conn, "BAT-3", "21.99", 5)

	all, total, err := repo.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	byCategory, total, err := repo.List(ctx, ProductFilter{CategoryID: &tools.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "TOOL-1", byCategory[0].SKU)

	searched, total, err := repo.List(ctx, ProductFilter{Search: "PENTALOBE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, searched, 1)

	paged, total, err := repo.List(ctx, ProductFilter{Page: Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, paged, 1)
}

func TestProductRepository_DecrementStock(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()
	product := createTestProduct(t, conn, "LCD-1", "50.00", 3)

	ok, err := repo.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "stock must never go negative")

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.StockQuantity)

	require.NoError(t, repo.RestoreStock(ctx, product.ID, 2))
	found, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.StockQuantity)
}

func TestProductRepository_DecrementVariantStock(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()
	product := createTestProduct(t, conn, "CHG-1", "15.00", 10)
	variant := createTestVariant(t, conn, product.ID, "USB-C", "2.00", 1)

	ok, err := repo.DecrementVariantStock(ctx, variant.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementVariantStock(ctx, variant.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.RestoreVariantStock(ctx, variant.ID, 1))
	found, err := repo.FindVariant(ctx, product.ID, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.StockQuantity)
}

func TestProductRepository_DeleteAndCountByCategory(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()
	category := createTestCategory(t, conn, "accessories")

	product := createTestProduct(t, conn, "CASE-1", "12.00", 10)
	product.CategoryID = &category.ID
	require.NoError(t, repo.Update(ctx, product))

	count, err := repo.CountByCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Delete(ctx, product.ID))
	_, err = repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, err = repo.CountByCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Delete(ctx, product.ID), gorm.ErrRecordNotFound)
}

func TestProductRepository_BulkCreate(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewProductRepository(conn)
	ctx := context.Background()

	products := []model.Product{
		{Name: "Spudger", Slug: "spudger", SKU: "TOOL-S", Price: model.MustMoney("1.99"), StockQuantity: 100},
		{Name: "Heat mat", Slug: "heat-mat", SKU: "TOOL-H", Price: model.MustMoney("24.50"), StockQuantity: 7},
		{Name: "B7000", Slug: "b7000", SKU: "ADH-B7", Price: model.MustMoney("4.25"), StockQuantity: 40},
	}
	require.NoError(t, repo.BulkCreate(ctx, products, 2))

	_, total, err := repo.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
