package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/config"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/controller"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

type Router struct {
	authController       *controller.AuthController
	userController       *controller.UserController
	addressController    *controller.AddressController
	categoryController   *controller.CategoryController
	productController    *controller.ProductController
	cartController       *controller.CartController
	orderController      *controller.OrderController
	adminOrderController *controller.AdminOrderController
	checkoutController   *controller.CheckoutController
	uploadController     *controller.UploadController
	websocketController  *controller.WebSocketController
	authMiddleware       *middleware.AuthMiddleware
	config               *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	userController *controller.UserController,
	addressController *controller.AddressController,
	categoryController *controller.CategoryController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	adminOrderController *controller.AdminOrderController,
	checkoutController *controller.CheckoutController,
	uploadController *controller.UploadController,
	websocketController *controller.WebSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:       authController,
		userController:       userController,
		addressController:    addressController,
		categoryController:   categoryController,
		productController:    productController,
		cartController:       cartController,
		orderController:      orderController,
		adminOrderController: adminOrderController,
		checkoutController:   checkoutController,
		uploadController:     uploadController,
		websocketController:  websocketController,
		authMiddleware:       authMiddleware,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Nexus TechHub API is running",
		})
	})

	// Browsers cannot set headers on the upgrade request, so the token may
	// also come from ?token=.
	router.GET("/ws/orders", r.authMiddleware.Authenticate(), r.websocketController.OrderUpdates)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			// No GuestSession here: login only merges a session the client
			// actually sent.
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", r.categoryController.ListCategories)
			categories.GET("/:id", r.categoryController.GetCategory)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/:id", r.productController.GetProduct)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate(), middleware.GuestSession())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:id", r.cartController.UpdateItem)
			cart.DELETE("/items/:id", r.cartController.RemoveItem)
			cart.POST("/merge", r.authMiddleware.Authenticate(), r.cartController.MergeCart)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.ListOrders)
			orders.POST("", r.orderController.CreateOrder)
			orders.GET("/number/:number", r.orderController.GetOrderByNumber)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.POST("/:id/cancel", r.orderController.CancelOrder)
		}

		addresses := v1.Group("/addresses")
		addresses.Use(r.authMiddleware.Authenticate())
		{
			addresses.GET("", r.addressController.ListAddresses)
			addresses.POST("", r.addressController.CreateAddress)
			addresses.PUT("/:id", r.addressController.UpdateAddress)
			addresses.DELETE("/:id", r.addressController.DeleteAddress)
			addresses.PUT("/:id/default", r.addressController.SetDefaultAddress)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.POST("/session", r.authMiddleware.Authenticate(), r.checkoutController.CreateSession)
			for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodDelete} {
				checkout.Handle(method, "/session", r.checkoutController.MethodNotAllowed)
			}
			// Signed by the provider; no user auth.
			checkout.POST("/webhook", r.checkoutController.Webhook)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.AdminOnly())
		{
			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", r.adminOrderController.ListOrders)
				adminOrders.GET("/recent", r.adminOrderController.RecentOrders)
				adminOrders.GET("/statistics", r.adminOrderController.Statistics)
				adminOrders.GET("/export", r.adminOrderController.Export)
				adminOrders.GET("/:id", r.adminOrderController.GetOrder)
				adminOrders.PUT("/:id/status", r.adminOrderController.UpdateStatus)
				adminOrders.PUT("/:id/payment-status", r.adminOrderController.UpdatePaymentStatus)
				adminOrders.POST("/:id/cancel", r.adminOrderController.CancelOrder)
			}

			users := admin.Group("/users")
			{
				users.GET("", r.userController.ListUsers)
				users.GET("/:id", r.userController.GetUser)
				users.DELETE("/:id", r.userController.DeleteUser)
			}

			admin.POST("/categories", r.categoryController.CreateCategory)
			admin.PUT("/categories/:id", r.categoryController.UpdateCategory)
			admin.DELETE("/categories/:id", r.categoryController.DeleteCategory)

			admin.POST("/products", r.productController.CreateProduct)
			admin.PUT("/products/:id", r.productController.UpdateProduct)
			admin.DELETE("/products/:id", r.productController.DeleteProduct)

			admin.POST("/uploads/product-image", r.uploadController.PresignProductImage)
		}
	}

	return router
}

var (
	corsAllowHeaders = strings.Join([]string{
		"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Origin",
		"Cache-Control", "X-Requested-With", middleware.SessionIDHeader, middleware.RequestIDHeader,
	}, ", ")
	corsExposeHeaders = strings.Join([]string{middleware.SessionIDHeader, middleware.RequestIDHeader}, ", ")
)

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Writer.Header().Set("Access-Control-Expose-Headers", corsExposeHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
