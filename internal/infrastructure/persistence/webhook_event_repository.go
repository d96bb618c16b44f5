package persistence

import (
	"context"
	"errors"

	"github.com/contabilidad/backend/internal/domain/notification"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements notification.WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Save stores an inbound event
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *notification.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(models.WebhookEventModelFromDomain(event)).Error
}

// FindByID finds an event by ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns the latest events, newest first
func (r *GormWebhookEventRepository) FindRecent(ctx context.Context, limit int) ([]notification.WebhookEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var eventModels []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Order("received_at DESC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}
	events := make([]notification.WebhookEvent, len(eventModels))
	for i := range eventModels {
		events[i] = *eventModels[i].ToDomain()
	}
	return events, nil
}

var _ notification.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
