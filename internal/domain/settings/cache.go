package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL bounds how long a cached settings snapshot is trusted
const DefaultCacheTTL = 10 * time.Minute

// Cache keeps recently read settings close to the formatter. A miss returns
// (nil, nil).
type Cache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*AccountingSettings, error)
	Set(ctx context.Context, s *AccountingSettings, ttl time.Duration) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
	Close() error
}
