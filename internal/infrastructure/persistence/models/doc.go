// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: identity and tenant aggregate columns (BaseModel, TenantAggregateModel)
// - settings.go: per-tenant accounting settings
// - open_document.go: invoices, notes and advances feeding the aging report
// - webhook_event.go: inbound WebNoti deliveries
package models
