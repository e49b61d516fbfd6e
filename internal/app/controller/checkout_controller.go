package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
	"github.com/mdtstech/nexus-techhub-backend/pkg/payment/stripe"
)

const maxWebhookBody = 64 << 10

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

type CheckoutSessionRequest struct {
	Items      []service.CheckoutItemInput `json:"items"`
	SuccessURL string                      `json:"successUrl"`
	CancelURL  string                      `json:"cancelUrl"`
}

// Every item problem is a 400 here, including unknown products.
var checkoutItemErrors = []error{
	service.ErrEmptyOrder,
	service.ErrInvalidQuantity,
	service.ErrProductNotFound,
	service.ErrVariantNotFound,
	service.ErrInsufficientStock,
}

// CreateSession places a pending order and opens a hosted checkout for it.
// POST /api/v1/checkout/session
func (ctrl *CheckoutController) CreateSession(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	email, _ := middleware.GetUserEmail(c)

	var req CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	result, err := ctrl.checkoutService.CreateSession(c.Request.Context(), service.CheckoutInput{
		UserID:     userID,
		Email:      email,
		Items:      req.Items,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		for _, target := range checkoutItemErrors {
			if errors.Is(err, target) {
				log.Warn("Checkout items rejected", map[string]interface{}{
					"user_id": userID,
					"reason":  err.Error(),
				})
				apperrors.BadRequest(c, apperrors.CheckoutInvalidItems, err.Error())
				return
			}
		}
		if errors.Is(err, service.ErrPaymentProvider) {
			log.Error("Checkout session failed", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.InternalError(c, "Failed to create checkout session")
			return
		}
		respondServiceError(c, err, "create checkout session")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Webhook applies signed provider events. Anything but a 2xx makes the
// provider redeliver.
// POST /api/v1/checkout/webhook
func (ctrl *CheckoutController) Webhook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Failed to read request body")
		return
	}
	if len(body) > maxWebhookBody {
		apperrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apperrors.ValidationInvalidInput, "Payload too large")
		return
	}

	event, err := ctrl.checkoutService.HandleWebhook(c.Request.Context(), c.GetHeader(stripe.SignatureHeader), body)
	if err != nil {
		respondServiceError(c, err, "process payment webhook")
		return
	}

	log.Info("Payment webhook received", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"outcome":    event.Outcome,
	})
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// MethodNotAllowed answers any verb other than POST on the checkout routes.
func (ctrl *CheckoutController) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	apperrors.RespondWithError(c, http.StatusMethodNotAllowed, apperrors.MethodNotAllowed, "Method not allowed")
}
