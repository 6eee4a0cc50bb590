package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appaccount "github.com/cartbridge/backend/internal/application/account"
	"github.com/cartbridge/backend/internal/application/shoppinglist"
	"github.com/cartbridge/backend/internal/domain/cart"
	"github.com/cartbridge/backend/internal/infrastructure/auth"
	"github.com/cartbridge/backend/internal/infrastructure/cache"
	"github.com/cartbridge/backend/internal/infrastructure/chedraui"
	"github.com/cartbridge/backend/internal/infrastructure/config"
	"github.com/cartbridge/backend/internal/infrastructure/logger"
	"github.com/cartbridge/backend/internal/infrastructure/persistence"
	"github.com/cartbridge/backend/internal/infrastructure/scheduler"
	"github.com/cartbridge/backend/internal/interfaces/http/handler"
	"github.com/cartbridge/backend/internal/interfaces/http/middleware"
	"github.com/cartbridge/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting cartbridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Outside production the schema is kept in sync automatically;
	// production deploys run cmd/migrate against migrations/.
	if cfg.App.Env != "production" {
		if err := db.Migrate(); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
	}

	// Snapshot store: Redis when reachable, in-memory otherwise so a
	// missing Redis only costs cache persistence across restarts.
	var snapshots cart.SnapshotStore
	redisStore, err := cache.NewRedisSnapshotStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Cache.CartTTL, cfg.Cache.SearchTTL)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory snapshot store", zap.Error(err))
		memStore := cache.NewInMemorySnapshotStore(cfg.Cache.CartTTL, cfg.Cache.SearchTTL)
		defer memStore.Close()
		snapshots = memStore
	} else {
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis snapshot store", zap.Error(err))
			}
		}()
		snapshots = redisStore
		log.Info("Redis snapshot store connected",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// Retailer gateway provider (one live session per account)
	provider := chedraui.NewProvider(chedraui.Options{
		BaseURL:        cfg.Retailer.BaseURL,
		TimeoutSeconds: cfg.Retailer.TimeoutSeconds,
		UserAgent:      cfg.Retailer.UserAgent,
	})

	// Repositories and application services
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	accountService := appaccount.NewService(accountRepo, provider, snapshots, log)
	todoService := shoppinglist.NewService(accountRepo, provider, snapshots, log)
	jwtService := auth.NewJWTService(cfg.JWT)

	// Background cart refresh scheduler
	if cfg.Refresh.Enabled {
		executor := scheduler.NewCartRefreshExecutor(accountRepo, provider, snapshots, log)
		lister := scheduler.NewActiveAccountLister(accountRepo)
		refreshScheduler, err := scheduler.NewRefreshScheduler(scheduler.RefreshSchedulerConfig{
			Enabled:           cfg.Refresh.Enabled,
			Interval:          cfg.Refresh.Interval,
			MaxConcurrentJobs: cfg.Refresh.MaxConcurrent,
			JobTimeout:        cfg.Refresh.JobTimeout,
			RetryAttempts:     cfg.Refresh.RetryAttempts,
			RetryDelay:        cfg.Refresh.RetryDelay,
		}, executor, lister, log)
		if err != nil {
			log.Fatal("Failed to create refresh scheduler", zap.Error(err))
		}
		if err := refreshScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start refresh scheduler", zap.Error(err))
		}
		defer func() {
			if err := refreshScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping refresh scheduler", zap.Error(err))
			}
		}()
		log.Info("Refresh scheduler started",
			zap.Duration("interval", cfg.Refresh.Interval),
			zap.Int("max_concurrent", cfg.Refresh.MaxConcurrent),
		)
	}

	// HTTP handlers
	accountHandler := handler.NewAccountHandler(accountService)
	todoHandler := handler.NewTodoHandler(todoService)
	authHandler := handler.NewAuthHandler(jwtService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// JWT authentication for API routes, with public endpoints skipped
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/auth/token",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Token exchange - public, with a stricter per-IP limit than the
	// general API rate limit
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.Use(middleware.AuthRateLimit(authLimiter))
	authRoutes.POST("/token", authHandler.Token)

	// Account registry
	accountRoutes := router.NewDomainGroup("accounts", "/accounts")
	accountRoutes.POST("", accountHandler.Register)
	accountRoutes.GET("", accountHandler.List)
	accountRoutes.GET("/:id", accountHandler.Get)
	accountRoutes.PUT("/:id/credentials", accountHandler.UpdateCredentials)
	accountRoutes.PUT("/:id/active", accountHandler.SetActive)
	accountRoutes.DELETE("/:id", accountHandler.Delete)
	accountRoutes.POST("/:id/refresh", accountHandler.Refresh)

	// Cart as a to-do list, plus catalog search
	accountRoutes.GET("/:id/todo-items", todoHandler.List)
	accountRoutes.POST("/:id/todo-items", todoHandler.Create)
	accountRoutes.PUT("/:id/todo-items/:uid", todoHandler.Update)
	accountRoutes.PUT("/:id/todo-items/:uid/quantity", todoHandler.SetQuantity)
	accountRoutes.DELETE("/:id/todo-items/:uid", todoHandler.Delete)
	accountRoutes.GET("/:id/products/search", todoHandler.Search)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(authRoutes).
		Register(accountRoutes).
		Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
