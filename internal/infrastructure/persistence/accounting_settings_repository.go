package persistence

import (
	"context"
	"errors"

	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/infrastructure/persistence/models"
	"github.com/contabilidad/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountingSettingsRepository implements settings.Repository using GORM
type GormAccountingSettingsRepository struct {
	db *gorm.DB
}

// NewGormAccountingSettingsRepository creates a new GormAccountingSettingsRepository
func NewGormAccountingSettingsRepository(db *gorm.DB) *GormAccountingSettingsRepository {
	return &GormAccountingSettingsRepository{db: db}
}

// FindByTenant returns the settings row of a tenant
func (r *GormAccountingSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*settings.AccountingSettings, error) {
	var model models.AccountingSettingsModel
	if err := tenant.For(ctx, r.db, tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the settings with optimistic locking
func (r *GormAccountingSettingsRepository) Save(ctx context.Context, s *settings.AccountingSettings) error {
	model := models.AccountingSettingsModelFromDomain(s)
	return saveVersioned(ctx, r.db, model, s.ID, s.Version)
}

var _ settings.Repository = (*GormAccountingSettingsRepository)(nil)
