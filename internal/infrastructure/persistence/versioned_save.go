package persistence

import (
	"context"
	"fmt"

	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// saveVersioned inserts a first version and updates later versions only when
// the stored row still carries the previous version number. Aggregates that
// were changed before ever being persisted are inserted as they are.
func saveVersioned(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, version int) error {
	if version <= 1 {
		return db.WithContext(ctx).Save(model).Error
	}

	result := db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", id, version-1).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing row: %w", err)
	}
	if count > 0 {
		return shared.ErrConflict
	}
	return db.WithContext(ctx).Create(model).Error
}
