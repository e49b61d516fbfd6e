package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/config"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/controller"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	"github.com/mdtstech/nexus-techhub-backend/internal/db"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
	"github.com/mdtstech/nexus-techhub-backend/internal/router"
	"github.com/mdtstech/nexus-techhub-backend/internal/scheduler"
	"github.com/mdtstech/nexus-techhub-backend/internal/storage"
	ws "github.com/mdtstech/nexus-techhub-backend/internal/websocket"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/mdtstech/nexus-techhub-backend/pkg/payment/stripe"
	"github.com/mdtstech/nexus-techhub-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	format := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		format = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      format,
		Service:     "nexus-techhub-backend",
		EnableColor: true,
	})

	logger.Info("Starting Nexus TechHub Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()
	conn := db.GetDB()

	if err := db.Migrate(conn); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(conn); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Optional components stay untyped nil when disabled so the services see
	// a nil interface.
	var (
		blacklist  service.TokenBlacklist
		revoked    middleware.RevocationChecker
		statsCache service.StatisticsCache
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.Init(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable; logout is stateless and statistics are not cached", map[string]interface{}{
				"addr":  cfg.Redis.Addr(),
				"error": err.Error(),
			})
		} else {
			defer redisClient.Close()
			blacklist = redisClient
			revoked = redisClient
			statsCache = redisClient
		}
	}

	var gateway service.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		stripeClient, err := stripe.NewClient(stripe.Config{
			SecretKey:          cfg.Stripe.SecretKey,
			PublishableKey:     cfg.Stripe.PublishableKey,
			WebhookSecret:      cfg.Stripe.WebhookSecret,
			SuccessURL:         cfg.Stripe.SuccessURL,
			CancelURL:          cfg.Stripe.CancelURL,
			Currency:           cfg.Stripe.Currency,
			APIBaseURL:         cfg.Stripe.APIBaseURL,
			WebhookTolerance:   cfg.Stripe.WebhookTolerance,
			PaymentMethodTypes: cfg.Stripe.PaymentMethodTypes,
		})
		if err != nil {
			logger.Fatal("Invalid Stripe configuration", err)
		}
		gateway = stripeClient
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; checkout is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var presigner service.ObjectPresigner
	if cfg.S3.Bucket != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			logger.Warn("S3 storage unavailable; image uploads are disabled", map[string]interface{}{
				"bucket": cfg.S3.Bucket,
				"error":  err.Error(),
			})
		} else {
			presigner = s3Storage
		}
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	userRepo := repository.NewUserRepository(conn)
	addressRepo := repository.NewAddressRepository(conn)
	categoryRepo := repository.NewCategoryRepository(conn)
	productRepo := repository.NewProductRepository(conn)
	cartRepo := repository.NewCartRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)

	// Initialize services
	cartService := service.NewCartService(conn, cartRepo, productRepo)
	orderService := service.NewOrderService(conn, orderRepo, cartRepo, productRepo, addressRepo,
		service.WithOrderNotifier(hub),
		service.WithStatisticsCache(statsCache),
		service.WithOrderNumberAttempts(cfg.Order.NumberRetryAttempts),
	)
	userService := service.NewUserService(conn, userRepo, addressRepo, orderRepo)
	addressService := service.NewAddressService(conn, addressRepo)
	categoryService := service.NewCategoryService(conn, categoryRepo, productRepo)
	productService := service.NewProductService(conn, productRepo, categoryRepo)
	authService := service.NewAuthService(
		userService,
		cartService,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	checkoutService := service.NewCheckoutService(productRepo, orderService, gateway)
	uploadService := service.NewUploadService(presigner)

	// Setup router
	r := router.NewRouter(
		controller.NewAuthController(authService, userService),
		controller.NewUserController(userService),
		controller.NewAddressController(addressService),
		controller.NewCategoryController(categoryService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService, cartService),
		controller.NewAdminOrderController(orderService),
		controller.NewCheckoutController(checkoutService),
		controller.NewUploadController(uploadService),
		controller.NewWebSocketController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.JWT.Secret, revoked),
		cfg,
	)

	cleanup := scheduler.NewCartCleanupScheduler(cartService, cfg.Cart.CleanupSpec, cfg.Cart.GuestRetention)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start guest cart cleanup", err)
	}
	defer cleanup.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown did not complete", err)
	}
	logger.Info("Server stopped successfully")
}
