package db

import (
	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.UserAddress{},
		&model.Category{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	}
}

// Migrate runs database migrations
func Migrate(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

var defaultCategories = []model.Category{
	{Name: "iPhone Parts", Slug: "iphone-parts", Description: "Screens, batteries and small parts for iPhone"},
	{Name: "Samsung Parts", Slug: "samsung-parts", Description: "Galaxy S, Note and A series replacement parts"},
	{Name: "iPad Parts", Slug: "ipad-parts", Description: "Digitizers, LCDs and batteries for iPad"},
	{Name: "Repair Tools", Slug: "repair-tools", Description: "Screwdrivers, spudgers, heat mats and adhesives"},
	{Name: "Accessories", Slug: "accessories", Description: "Cases, cables and chargers"},
}

// Seed inserts the default categories when the table is empty.
func Seed(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&model.Category{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count categories", err)
		return err
	}
	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	categories := make([]model.Category, len(defaultCategories))
	copy(categories, defaultCategories)
	if err := conn.Create(&categories).Error; err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}

	logger.Info("Default categories seeded", map[string]interface{}{
		"count": len(categories),
	})
	return nil
}
