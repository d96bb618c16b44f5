package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/contabilidad/backend/internal/application/finance"
	notificationapp "github.com/contabilidad/backend/internal/application/notification"
	reportapp "github.com/contabilidad/backend/internal/application/report"
	settingsapp "github.com/contabilidad/backend/internal/application/settings"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/contabilidad/backend/internal/infrastructure/auth"
	"github.com/contabilidad/backend/internal/infrastructure/cache"
	"github.com/contabilidad/backend/internal/infrastructure/config"
	"github.com/contabilidad/backend/internal/infrastructure/logger"
	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/contabilidad/backend/internal/infrastructure/notify"
	"github.com/contabilidad/backend/internal/infrastructure/persistence"
	"github.com/contabilidad/backend/internal/infrastructure/storage"
	"github.com/contabilidad/backend/internal/infrastructure/telemetry"
	"github.com/contabilidad/backend/internal/interfaces/http/handler"
	"github.com/contabilidad/backend/internal/interfaces/http/middleware"
	"github.com/contabilidad/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Contabilidad API
//	@version		1.0
//	@description	Accounting core: number formatting, open documents and receivable/payable aging

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Contabilidad backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	telemetry.ServiceVersion = version
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
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

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if cfg.Database.SlowThreshold > 0 {
		dbTracing.SlowQueryThresh = cfg.Database.SlowThreshold
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Metrics.Enabled {
		metrics.Init(db.SQL(), log)
	}

	// Repositories
	settingsRepo := persistence.NewGormAccountingSettingsRepository(db.DB)
	documentRepo := persistence.NewGormOpenDocumentRepository(db.DB)
	webhookRepo := persistence.NewGormWebhookEventRepository(db.DB)

	settingsCache, err := cache.NewSettingsCacheFactory(cfg.Redis, cache.WithLogger(log)).CreateCache()
	if err != nil {
		log.Fatal("Failed to create settings cache", zap.Error(err))
	}

	// Application services
	settingsService := settingsapp.NewService(settingsRepo,
		settingsapp.WithCache(settingsCache, cfg.Redis.SettingsTTL),
		settingsapp.WithLogger(log),
	)
	configureDefaultFormatter(ctx, cfg, settingsService, log)

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Fatal("Invalid app timezone", zap.String("timezone", cfg.App.Timezone), zap.Error(err))
	}
	documentService := financeapp.NewDocumentService(documentRepo, settingsService, log)
	agingService := reportapp.NewAgingService(documentRepo, settingsService,
		reportapp.WithWorkers(cfg.App.AgingWorkers),
		reportapp.WithLocation(location),
		reportapp.WithAgingLogger(log),
	)

	var objectStorage reportapp.ObjectStorage
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
		log.Info("Object storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	}
	exportService := reportapp.NewExportService(agingService, objectStorage, cfg.Storage.PresignTTL, log)

	var upstream notificationapp.Upstream
	webnotiClient, err := notify.NewWebNotiClient(&cfg.WebNoti, notify.WithLogger(log))
	switch {
	case err == nil:
		upstream = webnotiClient
	case errors.Is(err, notify.ErrNotConfigured):
		log.Warn("WebNoti upstream not configured, send and subscribe will fail")
	default:
		log.Fatal("Failed to initialize WebNoti client", zap.Error(err))
	}
	webnotiService := notificationapp.NewWebNotiService(webhookRepo, upstream, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
		"database": db.Ping,
	})

	engine, err := router.NewEngine(cfg, log, auth.NewJWTService(cfg.JWT), router.Handlers{
		System:    systemHandler,
		Settings:  handler.NewSettingsHandler(settingsService),
		Documents: handler.NewDocumentHandler(documentService),
		Reports:   handler.NewReportHandler(agingService, exportService),
		WebNoti:   handler.NewWebNotiHandler(webnotiService, cfg.WebNoti.MaxPayloadSize),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// configureDefaultFormatter seeds the process-wide formatter from the
// default tenant's stored settings, or from the [format] section when no
// default tenant is set or its settings cannot be read.
func configureDefaultFormatter(ctx context.Context, cfg *config.Config, settings *settingsapp.Service, log *zap.Logger) {
	raw := numformat.RawSettings{}
	if cfg.Format.DefaultCurrency != "" {
		raw.DefaultCurrency = &cfg.Format.DefaultCurrency
	}
	if cfg.Format.NumberFormat != "" {
		raw.NumberFormat = &cfg.Format.NumberFormat
	}
	places := float64(cfg.Format.DecimalPlaces)
	raw.DecimalPlaces = &places

	if cfg.App.DefaultTenant != "" {
		tenantID, err := uuid.Parse(cfg.App.DefaultTenant)
		if err != nil {
			log.Warn("Invalid default tenant, using [format] section", zap.String("tenant", cfg.App.DefaultTenant))
		} else if resp, err := settings.Get(ctx, tenantID); err != nil {
			log.Warn("Failed to load default tenant settings, using [format] section", zap.Error(err))
		} else {
			places = float64(resp.DecimalPlaces)
			raw = numformat.RawSettings{
				DefaultCurrency: &resp.DefaultCurrency,
				DecimalPlaces:   &places,
				NumberFormat:    &resp.NumberFormat,
			}
		}
	}

	applied := numformat.Configure(raw)
	log.Info("Number formatter configured",
		zap.String("currency_label", applied.CurrencyLabel),
		zap.Int("decimal_places", applied.DecimalPlaces),
		zap.String("thousand_separator", applied.ThousandSeparator),
		zap.String("decimal_separator", applied.DecimalSeparator),
	)
}
