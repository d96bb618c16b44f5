package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/finance"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/infrastructure/persistence/models"
	"github.com/contabilidad/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	openStatuses = []finance.DocumentStatus{finance.DocumentStatusOpen, finance.DocumentStatusPartial}
	ageableKinds = []finance.DocumentKind{finance.DocumentKindInvoice, finance.DocumentKindDebitNote}
)

// GormOpenDocumentRepository implements finance.OpenDocumentRepository using GORM
type GormOpenDocumentRepository struct {
	db *gorm.DB
}

// NewGormOpenDocumentRepository creates a new GormOpenDocumentRepository
func NewGormOpenDocumentRepository(db *gorm.DB) *GormOpenDocumentRepository {
	return &GormOpenDocumentRepository{db: db}
}

// FindByID finds a document by ID within a tenant
func (r *GormOpenDocumentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.OpenDocument, error) {
	var model models.OpenDocumentModel
	if err := tenant.For(ctx, r.db, tenantID).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of documents and the total matching count
func (r *GormOpenDocumentRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter finance.OpenDocumentFilter) ([]finance.OpenDocument, int64, error) {
	var total int64
	if err := r.applyFilter(r.tenantQuery(ctx, tenantID), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.tenantQuery(ctx, tenantID), filter)

	query = query.Order(openDocumentSort.clause(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var docModels []models.OpenDocumentModel
	if err := query.Find(&docModels).Error; err != nil {
		return nil, 0, err
	}
	return toOpenDocuments(docModels), total, nil
}

// ListOpen returns ageable documents still carrying a balance, oldest first
func (r *GormOpenDocumentRepository) ListOpen(ctx context.Context, tenantID uuid.UUID, filter finance.OpenDocumentFilter) ([]finance.OpenDocument, error) {
	filter.Statuses = openStatuses
	filter.Kinds = ageableKinds

	var docModels []models.OpenDocumentModel
	if err := r.applyFilter(r.tenantQuery(ctx, tenantID), filter).
		Order("issue_date ASC").
		Order("ncf ASC").
		Find(&docModels).Error; err != nil {
		return nil, err
	}
	return toOpenDocuments(docModels), nil
}

// CountOpen counts ageable documents with a balance in one direction
func (r *GormOpenDocumentRepository) CountOpen(ctx context.Context, tenantID uuid.UUID, direction finance.Direction) (int64, error) {
	var count int64
	err := r.tenantQuery(ctx, tenantID).
		Where("direction = ?", direction).
		Where("status IN ?", openStatuses).
		Where("kind IN ?", ageableKinds).
		Count(&count).Error
	return count, err
}

// Save creates or updates a document with optimistic locking
func (r *GormOpenDocumentRepository) Save(ctx context.Context, doc *finance.OpenDocument) error {
	model := models.OpenDocumentModelFromDomain(doc)
	return saveVersioned(ctx, r.db, model, doc.ID, doc.Version)
}

// ExistsByNCF checks if a fiscal number is already used in a direction
func (r *GormOpenDocumentRepository) ExistsByNCF(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, ncf string) (bool, error) {
	var count int64
	err := r.tenantQuery(ctx, tenantID).
		Where("direction = ? AND ncf = ?", direction, strings.TrimSpace(ncf)).
		Count(&count).Error
	return count > 0, err
}

func (r *GormOpenDocumentRepository) tenantQuery(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return tenant.For(ctx, r.db, tenantID).Model(&models.OpenDocumentModel{})
}

// applyFilter applies filter options without ordering or pagination
func (r *GormOpenDocumentRepository) applyFilter(query *gorm.DB, filter finance.OpenDocumentFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(ncf) LIKE ? OR LOWER(counterparty_name) LIKE ?", pattern, pattern)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if len(filter.Kinds) > 0 {
		query = query.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.IssuedOnOrBefore != nil {
		t := *filter.IssuedOnOrBefore
		nextDay := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
		query = query.Where("issue_date < ?", nextDay)
	}
	return query
}

func toOpenDocuments(docModels []models.OpenDocumentModel) []finance.OpenDocument {
	docs := make([]finance.OpenDocument, len(docModels))
	for i := range docModels {
		docs[i] = *docModels[i].ToDomain()
	}
	return docs
}

var _ finance.OpenDocumentRepository = (*GormOpenDocumentRepository)(nil)
