// Package notification handles the WebNoti webhook and proxies outbound
// notification calls.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contabilidad/backend/internal/domain/notification"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/infrastructure/notify"
	"github.com/contabilidad/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upstream is the notification API the service proxies to
type Upstream interface {
	Send(ctx context.Context, payload json.RawMessage) (*notify.Response, error)
	Subscribe(ctx context.Context, payload json.RawMessage) (*notify.Response, error)
}

// RecordedEvent is the acknowledgement of a stored webhook event
type RecordedEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	ReceivedAt time.Time `json:"received_at"`
}

// ProxyResult is the upstream answer to a proxied call
type ProxyResult struct {
	StatusCode int             `json:"status"`
	Body       json.RawMessage `json:"result"`
}

// WebNotiService stores inbound WebNoti events and forwards send/subscribe calls
type WebNotiService struct {
	events   notification.WebhookEventRepository
	upstream Upstream
	now      func() time.Time
	logger   *zap.Logger
}

// NewWebNotiService creates a new WebNotiService. A nil upstream makes Send
// and Subscribe fail with notify.ErrNotConfigured.
func NewWebNotiService(events notification.WebhookEventRepository, upstream Upstream, logger *zap.Logger) *WebNotiService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebNotiService{
		events:   events,
		upstream: upstream,
		now:      time.Now,
		logger:   logger,
	}
}

// RecordEvent persists an inbound webhook payload
func (s *WebNotiService) RecordEvent(ctx context.Context, payload []byte, remoteAddr string) (*RecordedEvent, error) {
	event, err := notification.NewWebhookEvent(payload, remoteAddr, s.now())
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "webnoti", "record",
		telemetry.AttrWebNotiEvent, event.EventType)
	defer span.End()

	if err := s.events.Save(ctx, event); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store webnoti event: %w", err)
	}

	s.logger.Info("WebNoti event received",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.String("remote_addr", remoteAddr))
	return &RecordedEvent{ID: event.ID, Type: event.EventType, ReceivedAt: event.ReceivedAt}, nil
}

// Send forwards a notification to the upstream API
func (s *WebNotiService) Send(ctx context.Context, payload []byte) (*ProxyResult, error) {
	return s.forward(ctx, "send", payload)
}

// Subscribe forwards a subscription to the upstream API
func (s *WebNotiService) Subscribe(ctx context.Context, payload []byte) (*ProxyResult, error) {
	return s.forward(ctx, "subscribe", payload)
}

func (s *WebNotiService) forward(ctx context.Context, op string, payload []byte) (*ProxyResult, error) {
	if !isJSONObject(payload) {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Request body must be a JSON object")
	}
	if s.upstream == nil {
		return nil, notify.ErrNotConfigured
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "webnoti", op)
	defer span.End()

	var (
		resp *notify.Response
		err  error
	)
	if op == "send" {
		resp, err = s.upstream.Send(ctx, payload)
	} else {
		resp, err = s.upstream.Subscribe(ctx, payload)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("WebNoti upstream call failed",
			zap.String("operation", op),
			zap.Error(err))
		return nil, err
	}
	return &ProxyResult{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

func isJSONObject(payload []byte) bool {
	var body map[string]json.RawMessage
	return json.Unmarshal(payload, &body) == nil && body != nil
}
