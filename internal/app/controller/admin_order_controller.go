package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

const (
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportDateLayout  = "2006-01-02"
	defaultExportDays = 30
)

type AdminOrderController struct {
	orderService service.OrderService
	now          func() time.Time
}

func NewAdminOrderController(orderService service.OrderService) *AdminOrderController {
	return &AdminOrderController{
		orderService: orderService,
		now:          time.Now,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
	Notes  *string           `json:"notes"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus model.PaymentStatus `json:"payment_status" binding:"required"`
	PaymentMethod *string             `json:"payment_method"`
}

// ListOrders GET /api/v1/admin/orders
func (ctrl *AdminOrderController) ListOrders(c *gin.Context) {
	page, limit := pageParams(c)

	orders, err := ctrl.orderService.ListOrders(c.Request.Context(), page, limit)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

// RecentOrders GET /api/v1/admin/orders/recent
func (ctrl *AdminOrderController) RecentOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, err := ctrl.orderService.ListRecentOrders(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err, "list recent orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GetOrder GET /api/v1/admin/orders/:id
func (ctrl *AdminOrderController) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Statistics GET /api/v1/admin/orders/statistics
func (ctrl *AdminOrderController) Statistics(c *gin.Context) {
	stats, err := ctrl.orderService.GetOrderStatistics(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "compute order statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Export streams an xlsx of orders created between from and to (inclusive
// dates, defaulting to the last 30 days).
// GET /api/v1/admin/orders/export?from=2024-01-01&to=2024-01-31
func (ctrl *AdminOrderController) Export(c *gin.Context) {
	today := ctrl.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -defaultExportDays)
	to := today

	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(exportDateLayout, v); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "from must be YYYY-MM-DD")
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(exportDateLayout, v); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "to must be YYYY-MM-DD")
			return
		}
	}

	data, err := ctrl.orderService.ExportOrders(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		respondServiceError(c, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s-%s.xlsx", from.Format(exportDateLayout), to.Format(exportDateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// UpdateStatus PUT /api/v1/admin/orders/:id/status
func (ctrl *AdminOrderController) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		respondServiceError(c, err, "update order status")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order status updated by admin", map[string]interface{}{
		"order_id": id,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdatePaymentStatus PUT /api/v1/admin/orders/:id/payment-status
func (ctrl *AdminOrderController) UpdatePaymentStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus, req.PaymentMethod)
	if err != nil {
		respondServiceError(c, err, "update payment status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder restores stock for any non-terminal order.
// POST /api/v1/admin/orders/:id/cancel
func (ctrl *AdminOrderController) CancelOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
	}

	order, err := ctrl.orderService.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
