package main

import (
	"log"
	"net/http"
	"os"

	_ "pawhaven/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pawhaven/internal/auth"
	"pawhaven/internal/cache"
	"pawhaven/internal/config"
	"pawhaven/internal/db"
	"pawhaven/internal/gateway"
	"pawhaven/internal/handler"
	"pawhaven/internal/mailer"
	"pawhaven/internal/model"
	"pawhaven/internal/repository"
	"pawhaven/internal/router"
	"pawhaven/internal/service"
)

// @title PawHaven API
// @version 1.0
// @description Pet adoption API with wallet and bank-redirect payment gateways and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.PaymentEvent{},
			&model.Payment{},
			&model.Pet{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Pet{},
		&model.Payment{},
		&model.PaymentEvent{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	petRepo := repository.NewPetRepository(gormDB)
	paymentRepo := repository.NewPaymentRepository(gormDB)
	eventRepo := repository.NewPaymentEventRepository(gormDB)
	transactor := repository.NewTransactor(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize gateway clients
	khaltiClient := gateway.NewKhaltiClient(cfg.Khalti)
	esewaClient := gateway.NewEsewaClient(cfg.Esewa)

	mail := mailer.New(cfg.SMTP)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, mail, cfg.BaseURL)
	userService := service.NewUserService(userRepo)
	petService := service.NewPetService(petRepo, cacheClient)
	paymentService := service.NewPaymentService(
		paymentRepo,
		petRepo,
		userRepo,
		eventRepo,
		transactor,
		khaltiClient,
		esewaClient,
		cacheClient,
		cfg.BaseURL,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	petHandler := handler.NewPetHandler(petService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	// Register routes
	router.Register(
		e,
		cfg,
		authHandler,
		userHandler,
		petHandler,
		paymentHandler,
	)

	// Log swagger full path
	swaggerURL := cfg.BaseURL + "/swagger/index.html"
	if cfg.SwaggerHost != "" {
		swaggerURL = cfg.SwaggerHost + "/swagger/index.html"
	}
	log.Printf("Swagger documentation available at: %s", swaggerURL)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
