// Package notification holds the records kept for the WebNoti integration.
package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UnknownEventType is stored when an inbound payload carries no usable type
const UnknownEventType = "unknown"

// WebhookEvent is an inbound WebNoti webhook delivery, stored as received
type WebhookEvent struct {
	shared.BaseEntity
	EventType  string
	Payload    json.RawMessage
	RemoteAddr string
	ReceivedAt time.Time
}

// NewWebhookEvent builds an event from a raw JSON payload. The payload must
// be a JSON object.
func NewWebhookEvent(payload []byte, remoteAddr string, receivedAt time.Time) (*WebhookEvent, error) {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil || body == nil {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Webhook payload must be a JSON object")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return &WebhookEvent{
		BaseEntity: shared.NewBaseEntityAt(receivedAt),
		EventType:  eventType(body),
		Payload:    json.RawMessage(payload),
		RemoteAddr: remoteAddr,
		ReceivedAt: receivedAt,
	}, nil
}

// eventType reads "type", falling back to "event"
func eventType(body map[string]any) string {
	for _, key := range []string{"type", "event"} {
		if v, ok := body[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return UnknownEventType
}

// WebhookEventRepository persists inbound webhook events
type WebhookEventRepository interface {
	Save(ctx context.Context, event *WebhookEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)
	FindRecent(ctx context.Context, limit int) ([]WebhookEvent, error)
}
