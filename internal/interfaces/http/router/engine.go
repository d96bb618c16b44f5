package router

import (
	"fmt"

	"github.com/contabilidad/backend/internal/infrastructure/auth"
	"github.com/contabilidad/backend/internal/infrastructure/config"
	"github.com/contabilidad/backend/internal/infrastructure/logger"
	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/contabilidad/backend/internal/interfaces/http/handler"
	"github.com/contabilidad/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers mounted by NewEngine
type Handlers struct {
	System    *handler.SystemHandler
	Settings  *handler.SettingsHandler
	Documents *handler.DocumentHandler
	Reports   *handler.ReportHandler
	WebNoti   *handler.WebNotiHandler
}

// NewEngine builds the gin engine with the global middleware chain, the
// public health endpoints, the JWT protected /api/v1 routes and the WebNoti endpoints.
func NewEngine(cfg *config.Config, log *zap.Logger, jwtService *auth.JWTService, h Handlers) (*gin.Engine, error) {
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("invalid trusted proxies: %w", err)
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("failed to disable trusted proxies: %w", err)
	}

	// Order matters: the request ID must exist before logging and tracing
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, "/api/webhooks/", "/api/webnoti/"))

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		system := NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo).
			GET("/ping", h.System.Ping)
		system.RegisterRoutes(&engine.RouterGroup)
	}
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(metrics.Handler()))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if cfg.HTTP.RateLimitPerSec > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitPerSec, cfg.HTTP.RateLimitBurst)))
	}
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	r.Use(
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
	)

	if h.Settings != nil {
		settingsRoutes := NewDomainGroup("settings", "/settings").
			GET("/accounting", h.Settings.GetAccountingSettings).
			PUT("/accounting",
				middleware.RequirePermissionWithLogger(middleware.PermissionSettingsWrite, log),
				h.Settings.UpdateAccountingSettings)
		formatRoutes := NewDomainGroup("format", "/format").
			POST("/preview", h.Settings.PreviewFormat)
		r.Register(settingsRoutes).Register(formatRoutes)
	}

	if h.Documents != nil {
		canWrite := middleware.RequirePermissionWithLogger(middleware.PermissionDocumentsWrite, log)
		financeRoutes := NewDomainGroup("finance", "/finance")
		financeRoutes.Group("documents", "/documents").
			POST("", canWrite, h.Documents.Create).
			GET("", h.Documents.List).
			GET("/:id", h.Documents.Get).
			POST("/:id/payments", canWrite, h.Documents.ApplyPayment).
			POST("/:id/void", canWrite, h.Documents.Void)
		r.Register(financeRoutes)
	}

	if h.Reports != nil {
		canExport := middleware.RequirePermissionWithLogger(middleware.PermissionReportsExport, log)
		reportRoutes := NewDomainGroup("report", "/reports")
		reportRoutes.Group("aging", "/aging").
			GET("", h.Reports.GetAging).
			GET("/export", canExport, h.Reports.ExportAging).
			POST("/import", h.Reports.ImportAging)
		r.Register(reportRoutes)
	}

	r.Setup()

	if h.WebNoti != nil {
		registerWebNoti(&engine.RouterGroup, cfg.WebNoti, log, h.WebNoti)
	}

	return engine, nil
}

// registerWebNoti mounts the webhook and proxy endpoints outside /api/v1.
// They authenticate with shared secrets rather than JWTs and answer every
// method so non-POST requests get a 405 in the WebNoti envelope.
func registerWebNoti(rg *gin.RouterGroup, cfg config.WebNotiConfig, log *zap.Logger, h *handler.WebNotiHandler) {
	webhooks := NewDomainGroup("webhooks", "/api/webhooks").
		Use(middleware.WebNotiPostOnly(), middleware.WebNotiSecret(cfg.WebhookSecret, log)).
		Any("/webnoti", h.Webhook)

	proxy := NewDomainGroup("webnoti", "/api/webnoti").
		Use(middleware.WebNotiPostOnly(), middleware.WebNotiAPIKey(cfg.APIKey, log)).
		Any("/send", h.Send).
		Any("/subscribe", h.Subscribe)

	webhooks.RegisterRoutes(rg)
	proxy.RegisterRoutes(rg)
}
