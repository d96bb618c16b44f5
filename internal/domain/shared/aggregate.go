package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates an entity with a fresh ID, created now
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt creates an entity with a fresh ID, created at t
func NewBaseEntityAt(t time.Time) BaseEntity {
	return BaseEntity{ID: uuid.New(), CreatedAt: t, UpdatedAt: t}
}

// BaseAggregateRoot adds the optimistic locking version. A new aggregate is
// at version 1; every accepted change moves it forward by one.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// MarkChanged stamps a state change at t
func (a *BaseAggregateRoot) MarkChanged(t time.Time) {
	a.UpdatedAt = t
	a.Version++
}

// TenantAggregateRoot is an aggregate owned by one tenant (one company's books)
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
}

// NewTenantAggregateRoot creates a version 1 aggregate for tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1},
		TenantID:          tenantID,
	}
}

// SetCreatedBy records the user who registered the aggregate
func (t *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	t.CreatedBy = &userID
}
