package finance

import (
	"context"
	"time"

	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OpenDocumentFilter narrows the documents returned by a listing
type OpenDocumentFilter struct {
	shared.Filter
	Direction        Direction
	CounterpartyID   *uuid.UUID
	Kinds            []DocumentKind
	Statuses         []DocumentStatus
	IssuedOnOrBefore *time.Time
}

// OpenDocumentRepository persists open documents
type OpenDocumentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*OpenDocument, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter OpenDocumentFilter) ([]OpenDocument, int64, error)
	// ListOpen returns every ageable document with a balance, without paging.
	ListOpen(ctx context.Context, tenantID uuid.UUID, filter OpenDocumentFilter) ([]OpenDocument, error)
	CountOpen(ctx context.Context, tenantID uuid.UUID, direction Direction) (int64, error)
	Save(ctx context.Context, doc *OpenDocument) error
	ExistsByNCF(ctx context.Context, tenantID uuid.UUID, direction Direction, ncf string) (bool, error)
}
