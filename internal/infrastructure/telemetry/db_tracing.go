package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans (dev only)
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "postgresql",
	}
}

// DBTracingPlugin registers otelgorm plus callbacks that flag slow queries
// and record errors on the active span.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// Register installs the plugin on db. It is a no-op when disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh))
	return nil
}

type processor interface {
	Before(name string) gormCallback
	After(name string) gormCallback
}

type gormCallback interface {
	Register(name string, fn func(*gorm.DB)) error
}

type processorAdapter struct {
	before func(string) gormCallback
	after  func(string) gormCallback
}

func (a processorAdapter) Before(name string) gormCallback { return a.before(name) }
func (a processorAdapter) After(name string) gormCallback  { return a.after(name) }

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	ops := map[string]processor{
		"create": processorAdapter{
			before: func(n string) gormCallback { return cb.Create().Before(n) },
			after:  func(n string) gormCallback { return cb.Create().After(n) },
		},
		"query": processorAdapter{
			before: func(n string) gormCallback { return cb.Query().Before(n) },
			after:  func(n string) gormCallback { return cb.Query().After(n) },
		},
		"update": processorAdapter{
			before: func(n string) gormCallback { return cb.Update().Before(n) },
			after:  func(n string) gormCallback { return cb.Update().After(n) },
		},
		"delete": processorAdapter{
			before: func(n string) gormCallback { return cb.Delete().Before(n) },
			after:  func(n string) gormCallback { return cb.Delete().After(n) },
		},
		"row": processorAdapter{
			before: func(n string) gormCallback { return cb.Row().Before(n) },
			after:  func(n string) gormCallback { return cb.Row().After(n) },
		},
		"raw": processorAdapter{
			before: func(n string) gormCallback { return cb.Raw().Before(n) },
			after:  func(n string) gormCallback { return cb.Raw().After(n) },
		},
	}
	for op, proc := range ops {
		if err := proc.Before("gorm:"+op).Register("otel_timing:before_"+op, markStart); err != nil {
			return err
		}
		if err := proc.After("gorm:"+op).Register("otel_timing:after_"+op, p.afterCallback); err != nil {
			return err
		}
	}
	return nil
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) afterCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()))
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds())))
	}
}
