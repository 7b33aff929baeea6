package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/teqbay/accounts-api/docs"
	"github.com/teqbay/accounts-api/internal/api/handler"
	"github.com/teqbay/accounts-api/internal/api/middleware"
	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/service"
	"github.com/teqbay/accounts-api/internal/infrastructure/config"
	mongodb "github.com/teqbay/accounts-api/internal/infrastructure/db/mongo"
	redisdb "github.com/teqbay/accounts-api/internal/infrastructure/db/redis"
	"github.com/teqbay/accounts-api/internal/infrastructure/photo"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("accounts"))

	// --- Dependencies ---
	credStore := mongodb.NewCredentialStore(db)
	userRepo := mongodb.NewRepository[domain.User](db, "users")
	photoClient := photo.NewClient(photo.Config{
		BaseURL: cfg.Photo.BaseURL,
		APIKey:  cfg.Photo.APIKey,
	}, log)

	authService := service.NewAuthService(credStore, cfg.JWTSecret, cfg.TokenTTL, log)
	userService := service.NewUserService(credStore, userRepo, photoClient, authService, log)

	throttle := redisdb.NewLoginThrottle(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)

	authHandler := handler.NewAuthHandler(authService, throttle)
	userHandler := handler.NewUserHandler(userService)

	authRequired := middleware.Auth(cfg.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)

	// --- User routes ---
	users := e.Group("/users")
	users.POST("", userHandler.Register)
	users.GET("/search", userHandler.Search, authRequired, middleware.RBAC(domain.RoleRegular, domain.RoleAdmin))
	users.GET("", userHandler.List, authRequired, middleware.RBAC(domain.RoleAdmin))
	users.GET("/:id", userHandler.Get, authRequired)
	users.PUT("/:id", userHandler.Update, authRequired)
	users.DELETE("/:id", userHandler.Delete, authRequired, middleware.RBAC(domain.RoleAdmin))
	users.PATCH("/:id/photo", userHandler.SetPhoto, authRequired)
	users.DELETE("/:id/photo", userHandler.RemovePhoto, authRequired)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
