package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/config"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	"github.com/mdtstech/nexus-techhub-backend/internal/db"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Required spreadsheet columns. Others are optional and matched by header.
var requiredColumns = []string{"name", "sku", "price"}

func main() {
	yes := flag.Bool("yes", false, "import without asking for confirmation")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("Usage: go run cmd/seed/main.go [-yes] <xlsx_file_path>")
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, skipped, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	fmt.Printf("Products to import: %d (skipped %d invalid rows)\n", len(rows), skipped)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	conn := db.GetDB()
	if err := db.Migrate(conn); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := db.Seed(conn); err != nil {
		log.Fatal("Failed to seed categories:", err)
	}

	products := service.NewProductService(conn,
		repository.NewProductRepository(conn),
		repository.NewCategoryRepository(conn),
	)
	result, err := products.ImportProducts(context.Background(), rows)
	if err != nil {
		log.Fatal("Failed to import products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Created: %d\n", result.Created)
	fmt.Printf("  Already present: %d\n", result.Skipped)
}

// readProductsFromXLSX reads the first sheet. The first row is a header;
// rows missing a required value or holding an unparsable number are skipped.
func readProductsFromXLSX(filePath string) ([]service.ProductImportRow, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	columns := map[string]int{}
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, 0, fmt.Errorf("missing required column %q", name)
		}
	}

	var products []service.ProductImportRow
	skipped := 0
	for _, row := range rows[1:] {
		product, ok := parseRow(row, columns)
		if !ok {
			skipped++
			continue
		}
		products = append(products, product)
	}
	return products, skipped, nil
}

func parseRow(row []string, columns map[string]int) (service.ProductImportRow, bool) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	p := service.ProductImportRow{
		CategorySlug: cell("category_slug"),
		Name:         cell("name"),
		SKU:          cell("sku"),
		Description:  cell("description"),
		Brand:        cell("brand"),
		ImageURL:     cell("image_url"),
	}
	if p.Name == "" || p.SKU == "" {
		return p, false
	}

	price, err := decimal.NewFromString(cell("price"))
	if err != nil || price.IsNegative() {
		return p, false
	}
	p.Price = model.NewMoney(price)

	if p.DiscountPercentage, err = intCell(cell("discount_percentage")); err != nil {
		return p, false
	}
	if p.StockQuantity, err = intCell(cell("stock_quantity")); err != nil {
		return p, false
	}
	switch strings.ToLower(cell("is_featured")) {
	case "1", "true", "yes", "y":
		p.IsFeatured = true
	}
	return p, true
}

func intCell(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
