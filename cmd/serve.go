package cmd

import (
	"context"
	"database/sql"
	"net"

	"github.com/depin-orcha/orcha/app/controller"
	"github.com/depin-orcha/orcha/app/database"
	"github.com/depin-orcha/orcha/app/middleware"
	"github.com/depin-orcha/orcha/app/repository"
	"github.com/depin-orcha/orcha/app/service"
	"github.com/depin-orcha/orcha/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start the HTTP (Echo) server exposing the health, prediction, allocation, and key management endpoints.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	// Pending migrations are applied on startup so the server never runs
	// against a stale schema.
	if _, err := database.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	keyRepo := repository.NewAPIKeyRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)
	keyService := service.NewAPIKeyService(keyRepo, cfg.DefaultRateLimitPerMinute)
	rateLimitService := service.NewRateLimitService(rateLimitRepo, cfg.RateLimitWindow)

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	rateLimitService.StartCleanup(cleanupCtx, cfg.RateLimitCleanupInterval, cfg.RateLimitRetention)

	startHTTPServer(cfg, db, keyService, rateLimitService)
}

func startHTTPServer(cfg *config.Config, db *sql.DB, keyService service.APIKeyService, rateLimitService service.RateLimitService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			if id, ok := c.Get(middleware.ContextKeyRequestID).(string); ok {
				fields["request_id"] = id
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestID)

	engineController := controller.NewEngineController(db)
	keyController := controller.NewAPIKeyController(keyService)
	keyMiddleware := middleware.NewAPIKeyMiddleware(keyService)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitService)

	e.GET("/health", engineController.Health)
	e.GET("/status", engineController.Status)

	protected := e.Group("")
	protected.Use(keyMiddleware.RequireAPIKey)
	protected.Use(rateLimitMiddleware.Limit)
	protected.GET("/metrics", engineController.Metrics)
	protected.POST("/predict/earnings/:protocol", engineController.PredictEarnings)
	protected.POST("/optimize/allocation", engineController.OptimizeAllocation)

	admin := protected.Group("/admin/keys")
	admin.POST("", keyController.Create)
	admin.GET("", keyController.List)
	admin.GET("/:id", keyController.Get)
	admin.PUT("/:id", keyController.Update)
	admin.DELETE("/:id", keyController.Delete)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
