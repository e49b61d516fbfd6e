package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

// UserController serves the admin user directory.
type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

// ListUsers GET /api/v1/admin/users
func (ctrl *UserController) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)

	users, err := ctrl.userService.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		respondServiceError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser GET /api/v1/admin/users/:id
func (ctrl *UserController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := ctrl.userService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser DELETE /api/v1/admin/users/:id
func (ctrl *UserController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if self, _ := middleware.GetUserID(c); self == id {
		apperrors.Conflict(c, apperrors.ResourceConflict, "Admins cannot delete their own account")
		return
	}

	if err := ctrl.userService.DeleteUser(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "delete user")
		return
	}
	c.Status(http.StatusNoContent)
}
