package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
	userService service.UserService
}

func NewAuthController(authService service.AuthService, userService service.UserService) *AuthController {
	return &AuthController{
		authService: authService,
		userService: userService,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"tokens":  tokens,
	})
}

// Login merges the X-Session-ID guest cart into the user's cart when present.
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	result, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password, middleware.GetSessionID(c))
	if err != nil {
		respondServiceError(c, err, "log in")
		return
	}

	body := gin.H{
		"message": "Login successful",
		"user":    result.User,
		"tokens":  result.Tokens,
	}
	if result.Cart != nil {
		body["cart"] = result.Cart
	}
	c.JSON(http.StatusOK, body)
}

// Logout POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), middleware.GetAccessToken(c)); err != nil {
		respondServiceError(c, err, "log out")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Refresh POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	tokens, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err, "refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// GetMe GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := ctrl.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "fetch profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req service.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := ctrl.userService.UpdateUser(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
