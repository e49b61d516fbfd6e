package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Orders"

var exportHeaders = []string{
	"Order Number", "Created At", "User ID", "Status", "Payment Status",
	"Payment Method", "Shipping Method", "Items", "Shipping Cost", "Total Amount",
}

// ExportOrders renders orders created in [from, to) as an xlsx workbook, one
// row per order.
func (s *orderService) ExportOrders(ctx context.Context, from, to time.Time) ([]byte, error) {
	logger.Info("Exporting orders", map[string]interface{}{
		"from": from,
		"to":   to,
	})

	if !to.After(from) {
		return nil, ErrInvalidOrderInput
	}

	orders, err := s.orderRepo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, order := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := exportRow(order)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write order %s: %w", order.OrderNumber, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	logger.Info("Orders exported", map[string]interface{}{
		"count": len(orders),
		"bytes": buf.Len(),
	})
	return buf.Bytes(), nil
}

func exportRow(order model.Order) []interface{} {
	var userID interface{} = ""
	if order.UserID != nil {
		userID = *order.UserID
	}

	items := 0
	for _, item := range order.Items {
		items += item.Quantity
	}

	shipping, _ := order.ShippingCost.Float64()
	total, _ := order.TotalAmount.Float64()
	return []interface{}{
		order.OrderNumber,
		order.CreatedAt.UTC().Format(time.RFC3339),
		userID,
		string(order.Status),
		string(order.PaymentStatus),
		order.PaymentMethod,
		order.ShippingMethod,
		items,
		shipping,
		total,
	}
}
