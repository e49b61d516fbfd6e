package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

type AddressController struct {
	addressService service.AddressService
}

func NewAddressController(addressService service.AddressService) *AddressController {
	return &AddressController{
		addressService: addressService,
	}
}

// ListAddresses returns the caller's addresses, default first.
// GET /api/v1/addresses
func (ctrl *AddressController) ListAddresses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addresses, err := ctrl.addressService.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "list addresses")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// CreateAddress POST /api/v1/addresses
func (ctrl *AddressController) CreateAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	address, err := ctrl.addressService.AddAddress(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "add address")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": address})
}

// UpdateAddress PUT /api/v1/addresses/:id
func (ctrl *AddressController) UpdateAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	address, err := ctrl.addressService.UpdateAddress(c.Request.Context(), userID, id, req)
	if err != nil {
		respondServiceError(c, err, "update address")
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}

// DeleteAddress DELETE /api/v1/addresses/:id
func (ctrl *AddressController) DeleteAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.addressService.DeleteAddress(c.Request.Context(), userID, id); err != nil {
		respondServiceError(c, err, "delete address")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Address deleted", map[string]interface{}{
		"user_id":    userID,
		"address_id": id,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Address deleted successfully"})
}

// SetDefaultAddress PUT /api/v1/addresses/:id/default
func (ctrl *AddressController) SetDefaultAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	address, err := ctrl.addressService.SetDefaultAddress(c.Request.Context(), userID, id)
	if err != nil {
		respondServiceError(c, err, "set default address")
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}
