package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
	"github.com/mdtstech/nexus-techhub-backend/pkg/payment/stripe"
	"github.com/mdtstech/nexus-techhub-backend/pkg/util"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Ordered: wrapped errors that match several sentinels hit the first row.
var serviceErrors = []errorMapping{
	{service.ErrCartOwnerRequired, http.StatusBadRequest, apperrors.CartOwnerRequired},
	{service.ErrCartNotFound, http.StatusNotFound, apperrors.CartNotFound},
	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.CartInvalidQuantity},
	{service.ErrEmptyOrder, http.StatusBadRequest, apperrors.CartEmpty},

	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound},
	{service.ErrVariantNotFound, http.StatusNotFound, apperrors.VariantNotFound},
	{service.ErrInsufficientStock, http.StatusBadRequest, apperrors.ProductInsufficientQty},
	{service.ErrInvalidProductInput, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrProductConflict, http.StatusConflict, apperrors.ResourceAlreadyExists},
	{service.ErrCategoryNotFound, http.StatusNotFound, apperrors.CategoryNotFound},
	{service.ErrCategoryHasProducts, http.StatusConflict, apperrors.CategoryHasProducts},
	{service.ErrCategoryConflict, http.StatusConflict, apperrors.ResourceAlreadyExists},
	{service.ErrInvalidCategory, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
	{service.ErrInvalidStatusTransition, http.StatusConflict, apperrors.OrderInvalidTransition},
	{service.ErrInvalidOrderStatus, http.StatusBadRequest, apperrors.OrderInvalidStatus},
	{service.ErrInvalidPaymentStatus, http.StatusBadRequest, apperrors.OrderInvalidStatus},
	{service.ErrInvalidOrderInput, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrUserNotFound, http.StatusNotFound, apperrors.UserNotFound},
	{service.ErrUserHasOrders, http.StatusConflict, apperrors.UserHasOrders},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists},
	{service.ErrInvalidEmail, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{util.ErrPasswordTooShort, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
	{service.ErrTokenRevoked, http.StatusUnauthorized, apperrors.AuthTokenRevoked},
	{util.ErrExpiredToken, http.StatusUnauthorized, apperrors.AuthTokenExpired},
	{util.ErrInvalidToken, http.StatusUnauthorized, apperrors.AuthTokenInvalid},
	{service.ErrAddressNotFound, http.StatusNotFound, apperrors.AddressNotFound},
	{service.ErrInvalidAddress, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrPaymentUnavailable, http.StatusServiceUnavailable, apperrors.InternalConfigError},
	{service.ErrPaymentProvider, http.StatusBadGateway, apperrors.PaymentProviderError},
	{stripe.ErrSignatureInvalid, http.StatusBadRequest, apperrors.PaymentSignature},
	{stripe.ErrResponseInvalid, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrInvalidUpload, http.StatusBadRequest, apperrors.UploadInvalidFileType},
	{service.ErrUploadTooLarge, http.StatusBadRequest, apperrors.UploadFileTooLarge},
	{service.ErrStorageUnavailable, http.StatusServiceUnavailable, apperrors.InternalConfigError},
}

// respondServiceError writes the JSON error for err. Unknown errors are
// logged and reported as 500 without their text.
func respondServiceError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				log.Error("Failed to "+action, err, nil)
			} else {
				log.Warn("Request rejected", map[string]interface{}{
					"action": action,
					"reason": err.Error(),
				})
			}
			apperrors.RespondWithError(c, m.status, m.code, err.Error())
			return
		}
	}

	log.Error("Failed to "+action, err, nil)
	apperrors.InternalError(c, "Failed to "+action)
}

func respondBindingError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	})
	if fields, ok := apperrors.FieldErrors(err); ok {
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data: "+err.Error())
}

// parseIDParam reads a positive numeric path parameter, answering 400 itself
// when it is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}
