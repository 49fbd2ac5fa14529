package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/abzagency/signup-api/config"
	"github.com/abzagency/signup-api/internal/cache"
	"github.com/abzagency/signup-api/internal/handlers"
	"github.com/abzagency/signup-api/internal/middleware"
	"github.com/abzagency/signup-api/internal/services"
	"github.com/abzagency/signup-api/internal/validation"
	"github.com/abzagency/signup-api/pkg/abzapi"
	"github.com/abzagency/signup-api/pkg/httpclient"
	"github.com/abzagency/signup-api/pkg/jwt"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/abzagency/signup-api/pkg/metrics"
	"github.com/abzagency/signup-api/pkg/profiling"
	"github.com/abzagency/signup-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// multipart framing on top of the photo itself
const multipartOverhead = 64 * 1024

// registerSessionRoutes registers the JSON form session routes
func registerSessionRoutes(
	group *gin.RouterGroup,
	cfg *config.Config,
	generalRateLimiter, submitRateLimiter *middleware.RateLimiter,
	sessionService *services.SessionService,
	sessionHandler *handlers.SessionHandler,
) {
	group.POST("/sessions", generalRateLimiter.Middleware(), sessionHandler.Create)

	current := group.Group("/sessions/current")
	current.Use(generalRateLimiter.Middleware())
	current.Use(middleware.FormSessionMiddleware(sessionService, cfg.Session.CookieDomain, cfg.Session.CookieSecure))

	current.GET("", sessionHandler.Get)
	current.DELETE("", sessionHandler.Delete)
	current.POST("/fields", middleware.BodySizeLimitMiddleware(16*1024), sessionHandler.ChangeField)
	current.POST("/position", middleware.BodySizeLimitMiddleware(1024), sessionHandler.SelectPosition)
	current.POST("/focus", middleware.BodySizeLimitMiddleware(1024), sessionHandler.SetFocus)
	current.POST("/viewport", middleware.BodySizeLimitMiddleware(1024), sessionHandler.UpdateViewport)
	current.POST("/photo", middleware.BodySizeLimitMiddleware(cfg.RateLimit.MaxPhotoBytes+multipartOverhead), sessionHandler.UploadPhoto)
	current.POST("/submit", submitRateLimiter.Middleware(), sessionHandler.Submit)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting sign-up form API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	service := tracing.Settings{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	}

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(service)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling
	stopProfiler, err := profiling.Start(cfg.Profiling, service)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Start infrastructure metrics collection
	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	metrics.RecordInfrastructureMetrics(stopMetrics)

	// Every mounted form lives until appCtx is cancelled
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// Users API client
	httpClient := httpclient.NewStandardClient(cfg.UpstreamTimeout())
	usersAPI := abzapi.NewClient(cfg.Upstream.BaseURL, httpClient)

	// Form sessions
	tokenManager := jwt.NewTokenManager(cfg.Session.JWTSecret, cfg.Session.JWTIssuer, cfg.SessionTTL())
	sessions := cache.NewSessionCache[*services.Session](cfg.SessionTTL())
	defer sessions.Close()

	sessionService := services.NewSessionService(appCtx, usersAPI, validation.NewEngine(), tokenManager, sessions, cfg)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService, cfg.Session.CookieDomain, cfg.Session.CookieSecure, cfg.RateLimit.MaxPhotoBytes)
	formPageHandler := handlers.NewFormPageHandler(sessionService, cfg.Session.CookieDomain, cfg.Session.CookieSecure, cfg.RateLimit.MaxPhotoBytes, cfg.SessionEndDelay())
	healthHandler := handlers.NewHealthHandler(sessions.Count)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.RateLimit.MaxPhotoBytes + multipartOverhead

	if err := handlers.LoadTemplates(router); err != nil {
		logger.Fatal("Failed to load templates", zap.Error(err))
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// CORS configuration - only the configured front-end origins
	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.SessionHeader, "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true, // Required for the session cookie
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiters per client IP
	generalRateLimiter := middleware.NewRateLimiter(appCtx, rate.Limit(cfg.RateLimit.GeneralRPS), cfg.RateLimit.GeneralBurst)
	submitRateLimiter := middleware.NewRateLimiter(appCtx, rate.Limit(cfg.RateLimit.SubmitRPS), cfg.RateLimit.SubmitBurst)

	// API routes
	api := router.Group("/api")
	// Utility endpoints (not versioned - operational endpoints)
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	registerSessionRoutes(v1, cfg, generalRateLimiter, submitRateLimiter, sessionService, sessionHandler)

	// Server-rendered form
	router.GET("/", generalRateLimiter.Middleware(), formPageHandler.Show)
	router.POST("/", generalRateLimiter.Middleware(), middleware.BodySizeLimitMiddleware(cfg.RateLimit.MaxPhotoBytes+multipartOverhead), formPageHandler.Post)

	// Create HTTP server. WriteTimeout leaves room for a submit that waits on
	// the users API.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited", zap.Int("open_sessions", sessions.Count()))
}
