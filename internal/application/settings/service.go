// Package settings serves the per-tenant accounting settings and the number
// formatter derived from them.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service reads and updates accounting settings
type Service struct {
	repo     settings.Repository
	cache    settings.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithCache puts a cache in front of the repository
func WithCache(cache settings.Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new settings Service
func NewService(repo settings.Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		cacheTTL: settings.DefaultCacheTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load returns the tenant settings and whether they were persisted. Tenants
// without a row get defaults.
func (s *Service) load(ctx context.Context, tenantID uuid.UUID) (*settings.AccountingSettings, bool, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.logger.Warn("Settings cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if cached != nil {
			return cached, true, nil
		}
	}

	stored, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return settings.NewAccountingSettings(tenantID), false, nil
		}
		return nil, false, fmt.Errorf("failed to load accounting settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stored, s.cacheTTL); err != nil {
			s.logger.Warn("Settings cache write failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
	return stored, true, nil
}

// Get returns the settings of a tenant, falling back to defaults
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*SettingsResponse, error) {
	current, persisted, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(current, persisted), nil
}

// Update validates and saves a settings change, then drops the cached copy
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, req UpdateSettingsRequest) (*SettingsResponse, error) {
	current, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to load accounting settings: %w", err)
		}
		current = settings.NewAccountingSettings(tenantID)
	}

	if err := current.Update(req.ToChanges()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, current); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, tenantID); err != nil {
			s.logger.Warn("Settings cache invalidation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Accounting settings updated",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("version", current.Version))
	return toSettingsResponse(current, true), nil
}

// Formatter returns a number formatter configured for the tenant
func (s *Service) Formatter(ctx context.Context, tenantID uuid.UUID) (*numformat.Formatter, error) {
	current, _, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return current.Formatter(), nil
}

// Preview renders values with the tenant formatter, optionally overridden
func (s *Service) Preview(ctx context.Context, tenantID uuid.UUID, req PreviewRequest) (*PreviewResponse, error) {
	f, err := s.Formatter(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if req.Settings != nil {
		f = f.Configure(*req.Settings)
	}

	lines := make([]PreviewLine, 0, len(req.Values))
	for _, raw := range req.Values {
		v := decodePreviewValue(raw)
		lines = append(lines, PreviewLine{
			Input:  raw,
			Number: f.FormatNumber(v),
			Amount: f.FormatAmount(v),
			Money:  f.FormatMoneyWithLabel(v, req.Label),
		})
	}
	return &PreviewResponse{Settings: f.Settings(), Lines: lines}, nil
}

// decodePreviewValue keeps numbers as json.Number so no precision is lost.
// Objects and arrays decode to types the formatter renders as "".
func decodePreviewValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
