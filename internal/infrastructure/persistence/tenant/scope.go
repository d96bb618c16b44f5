// Package tenant scopes GORM queries to one tenant.
//
// Repositories take the tenant explicitly and pass it through For, which
// also checks it against the tenant the request was authenticated for:
//
//	tenant.For(ctx, db, tenantID).Find(&docs) // WHERE tenant_id = 'xxx'
package tenant

import (
	"context"
	"errors"

	"github.com/contabilidad/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the tenant ID column shared by every tenant-owned table
const Column = "tenant_id"

// ErrTenantIDRequired is returned when a query is scoped to the nil tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// ErrTenantMismatch is returned when the requested tenant differs from the
// tenant carried by the request context
var ErrTenantMismatch = errors.New("tenant_id does not match the authenticated tenant")

// Scope filters a query to tenantID. The nil UUID fails the query instead of
// matching nothing.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(Column+" = ?", tenantID)
	}
}

// Check verifies tenantID against the tenant stored in ctx by the auth
// middleware. Contexts without a tenant, such as jobs and tests, pass.
func Check(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	fromCtx := logger.GetTenantID(ctx)
	if fromCtx == "" {
		return nil
	}
	ctxTenant, err := uuid.Parse(fromCtx)
	if err != nil || ctxTenant != tenantID {
		return ErrTenantMismatch
	}
	return nil
}

// For returns db bound to ctx and scoped to tenantID. A failed Check is
// reported by the first operation run on the returned DB.
func For(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	scoped := db.WithContext(ctx)
	if err := Check(ctx, tenantID); err != nil {
		_ = scoped.AddError(err)
		return scoped
	}
	return scoped.Scopes(Scope(tenantID))
}
