package models

import (
	"encoding/json"
	"time"

	"github.com/contabilidad/backend/internal/domain/notification"
)

// WebhookEventModel is the persistence model for inbound WebNoti events
type WebhookEventModel struct {
	BaseModel
	EventType  string    `gorm:"type:varchar(100);not null;index"`
	Payload    string    `gorm:"type:jsonb;not null"`
	RemoteAddr string    `gorm:"type:varchar(64)"`
	ReceivedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webnoti_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent
func (m *WebhookEventModel) ToDomain() *notification.WebhookEvent {
	return &notification.WebhookEvent{
		BaseEntity: m.BaseModel.ToDomain(),
		EventType:  m.EventType,
		Payload:    json.RawMessage(m.Payload),
		RemoteAddr: m.RemoteAddr,
		ReceivedAt: m.ReceivedAt,
	}
}

// WebhookEventModelFromDomain creates a new persistence model from a domain WebhookEvent
func WebhookEventModelFromDomain(e *notification.WebhookEvent) *WebhookEventModel {
	m := &WebhookEventModel{
		EventType:  e.EventType,
		Payload:    string(e.Payload),
		RemoteAddr: e.RemoteAddr,
		ReceivedAt: e.ReceivedAt,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
