package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/akunflix/backend/docs"
	"github.com/akunflix/backend/internal/database"
	"github.com/akunflix/backend/internal/handlers"
	mW "github.com/akunflix/backend/internal/middleware"
	"github.com/akunflix/backend/internal/services"
)

// @title Akunflix Store Backend API
// @version 1.0
// @description Backend for the subscription account storefront
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("adapter.webhook_url", "ADAPTER_WEBHOOK_URL")
	viper.BindEnv("payment.merchant_name", "PAYMENT_MERCHANT_NAME")
	viper.BindEnv("store.referral_commission", "STORE_REFERRAL_COMMISSION")
	viper.BindEnv("admin.id", "ADMIN_ID")
	viper.BindEnv("admin.key", "ADMIN_KEY")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Akunflix Store Backend API"
	docs.SwaggerInfo.Description = "Backend for the subscription account storefront"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize stores
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	feed, err := database.NewFeed(database.GetConfig().ConnString(),
		"inventory", "orders", "users", "broadcasts", "settings")
	if err != nil {
		log.Fatalf("Failed to initialize change feed: %v", err)
	}
	defer feed.Close()

	// Initialize services
	inventoryService := services.NewInventoryService(db, redisClient)
	balanceService := services.NewBalanceService(db)
	userService := services.NewUserService(db, balanceService)
	orderService := services.NewOrderService(db, inventoryService, balanceService, userService)
	voucherService := services.NewVoucherService(db, balanceService)
	pricingService := services.NewPricingService(db)
	pricingService.Watch(feed)
	broadcastService := services.NewBroadcastService(db)
	qrisService := services.NewQRISService(redisClient)
	authService := services.NewAuthService(db)

	// Provision the bootstrap admin key if configured
	if adminID := viper.GetString("admin.id"); adminID != "" && viper.GetString("admin.key") != "" {
		if err := authService.ProvisionKey(context.Background(), adminID,
			viper.GetString("admin.key"), "admin"); err != nil {
			log.Printf("Warning: Failed to provision bootstrap admin key: %v", err)
		}
	}

	// Background workers
	reaper := services.NewReaperService(db, services.DefaultReaperConfig())
	reaper.Start()
	defer reaper.Stop()

	var broadcastWorker *services.BroadcastWorker
	if webhookURL := viper.GetString("adapter.webhook_url"); webhookURL != "" {
		broadcastWorker = services.NewBroadcastWorker(broadcastService, userService,
			services.NewWebhookSender(webhookURL), services.DefaultBroadcastWorkerConfig())
		broadcastWorker.Start()
		defer broadcastWorker.Stop()
	} else {
		log.Println("ADAPTER_WEBHOOK_URL not set, broadcast delivery disabled")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService, qrisService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)
	voucherHandler := handlers.NewVoucherHandler(voucherService)
	userHandler := handlers.NewUserHandler(userService, balanceService)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	broadcastHandler := handlers.NewBroadcastHandler(broadcastService)
	feedHandler := handlers.NewFeedHandler(feed)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// The SSE feed runs outside the request timeout; its streams are
		// long-lived and end when the client disconnects.
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)
			r.Get("/feed", feedHandler.Stream)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Public endpoints (no auth required)
			r.Post("/auth/login", authHandler.Login)
			r.Get("/prices", pricingHandler.GetPrices)
			r.Get("/inventory/stock", inventoryHandler.GetStock)

			// Adapter and dashboard endpoints (auth required)
			r.Group(func(r chi.Router) {
				r.Use(mW.AuthMiddleware)

				r.Post("/users", userHandler.UpsertUser)
				r.Get("/users/{userID}", userHandler.GetUser)
				r.Post("/users/{userID}/referrer", userHandler.SetReferrer)

				r.Post("/orders", orderHandler.CreateOrder)
				r.Get("/orders/{orderID}", orderHandler.GetOrder)
				r.Post("/orders/{orderID}/qris", orderHandler.CreatePaymentSession)
				r.Get("/orders/{orderID}/qris", orderHandler.GetPaymentSession)
				r.Post("/orders/{orderID}/cancel", orderHandler.CancelOrder)

				r.Post("/vouchers/redeem", voucherHandler.RedeemVoucher)

				// Management endpoints (admin role required)
				r.Group(func(r chi.Router) {
					r.Use(mW.RequireAdmin)

					r.Get("/orders", orderHandler.ListOrders)
					r.Post("/orders/{orderID}/settle", orderHandler.SettleOrder)

					r.Get("/inventory", inventoryHandler.ListAccounts)
					r.Post("/inventory", inventoryHandler.AddAccounts)
					r.Delete("/inventory/{recordID}", inventoryHandler.DeleteAccount)

					r.Get("/users", userHandler.ListUsers)
					r.Put("/users/{userID}/role", userHandler.UpdateRole)
					r.Post("/users/{userID}/balance", userHandler.AdjustBalance)

					r.Post("/vouchers", voucherHandler.CreateVoucher)
					r.Get("/vouchers", voucherHandler.ListVouchers)
					r.Delete("/vouchers/{voucherID}", voucherHandler.DeleteVoucher)

					r.Put("/prices", pricingHandler.UpdatePrice)

					r.Post("/broadcasts", broadcastHandler.CreateBroadcast)
					r.Get("/broadcasts", broadcastHandler.ListBroadcasts)
				})
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server. No write timeout: /feed holds SSE streams open.
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Stop workers before the HTTP server so in-flight deliveries finish
	reaper.Stop()
	if broadcastWorker != nil {
		broadcastWorker.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
