package main

import (
	"context"
	"log"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Business Service Management API
// @version         1.0
// @description     Customers, appointments, requests, notifications, users and permissions.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// The middleware's permission cache and the permission service reference
	// each other, so wire the invalidation callback through an indirection.
	var authMW *middleware.AuthMiddleware
	invalidate := func(userID uuid.UUID) {
		if authMW != nil {
			authMW.ClearUserPermissionCache(userID)
		}
	}

	activityService := service.NewActivityService(activityRepo)
	notificationService := service.NewNotificationService(notificationRepo, wsHub)
	permissionService := service.NewPermissionService(userRepo, permRepo, txManager, activityService, invalidate)
	userService := service.NewUserService(userRepo, permissionService, activityService, cfg, invalidate)
	customerService := service.NewCustomerService(customerRepo, appointmentRepo, activityService)
	appointmentService := service.NewAppointmentService(appointmentRepo, customerRepo, activityService, notificationService)
	requestService := service.NewRequestService(requestRepo, customerRepo, userRepo, activityService, notificationService)

	authMW = middleware.NewAuthMiddleware(cfg, permissionService)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)

	// Seed the permission catalog and the bootstrap admin on a fresh database
	ctx := context.Background()
	if err := permissionService.Seed(ctx); err != nil {
		log.Fatalf("Permission seed failed: %v", err)
	}
	if err := userService.EnsureBootstrapAdmin(ctx); err != nil {
		log.Fatalf("Admin bootstrap failed: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, authMW, loginLimiter)
	customerHandler := handler.NewCustomerHandler(customerService, authMW)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService, authMW)
	requestHandler := handler.NewRequestHandler(requestService, authMW)
	notificationHandler := handler.NewNotificationHandler(notificationService, authMW)
	permissionHandler := handler.NewPermissionHandler(permissionService, authMW)
	activityHandler := handler.NewActivityHandler(activityService, authMW)

	// Set up Gin Router
	router := gin.Default()
	router.Use(middleware.Metrics())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, []byte(cfg.JWTSecret))
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	customerHandler.RegisterRoutes(router.Group(""))
	appointmentHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	notificationHandler.RegisterRoutes(router.Group(""))
	permissionHandler.RegisterRoutes(router.Group(""))
	activityHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
