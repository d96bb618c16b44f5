package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	notificationapp "github.com/contabilidad/backend/internal/application/notification"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/infrastructure/logger"
	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/contabilidad/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// defaultWebNotiPayloadSize caps webhook bodies when no limit is configured
const defaultWebNotiPayloadSize = 64 << 10

// WebNotiService stores webhook events and proxies notification calls
type WebNotiService interface {
	RecordEvent(ctx context.Context, payload []byte, remoteAddr string) (*notificationapp.RecordedEvent, error)
	Send(ctx context.Context, payload []byte) (*notificationapp.ProxyResult, error)
	Subscribe(ctx context.Context, payload []byte) (*notificationapp.ProxyResult, error)
}

// WebNotiHandler serves the WebNoti webhook and proxy endpoints. Responses
// use the {ok:...} envelope instead of the standard API response.
type WebNotiHandler struct {
	service    WebNotiService
	maxPayload int64
}

// NewWebNotiHandler creates a new WebNotiHandler
func NewWebNotiHandler(service WebNotiService, maxPayload int64) *WebNotiHandler {
	if maxPayload <= 0 {
		maxPayload = defaultWebNotiPayloadSize
	}
	return &WebNotiHandler{service: service, maxPayload: maxPayload}
}

// Webhook godoc
// @ID           webnotiWebhook
// @Summary      Receive a WebNoti event
// @Tags         webnoti
// @Accept       json
// @Produce      json
// @Param        x-webnoti-secret header string true "Shared webhook secret"
// @Success      200 {object} map[string]any
// @Failure      400 {object} dto.WebNotiError
// @Failure      401 {object} dto.WebNotiError
// @Failure      500 {object} dto.WebNotiError
// @Router       /api/webhooks/webnoti [post]
func (h *WebNotiHandler) Webhook(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}

	event, err := h.service.RecordEvent(c.Request.Context(), payload, c.ClientIP())
	if err != nil {
		h.fail(c, err, "Failed to store event")
		return
	}
	h.respond(c, http.StatusOK, dto.NewWebNotiSuccess(map[string]any{
		"id":          event.ID,
		"type":        event.Type,
		"received_at": event.ReceivedAt,
	}))
}

// Send godoc
// @ID           webnotiSend
// @Summary      Send a notification through WebNoti
// @Tags         webnoti
// @Accept       json
// @Produce      json
// @Param        x-api-key header string false "API key, or the api_key query parameter"
// @Success      200 {object} map[string]any
// @Failure      400 {object} dto.WebNotiError
// @Failure      401 {object} dto.WebNotiError
// @Failure      500 {object} dto.WebNotiError
// @Router       /api/webnoti/send [post]
func (h *WebNotiHandler) Send(c *gin.Context) {
	h.proxy(c, h.service.Send)
}

// Subscribe godoc
// @ID           webnotiSubscribe
// @Summary      Subscribe a recipient through WebNoti
// @Tags         webnoti
// @Accept       json
// @Produce      json
// @Param        x-api-key header string false "API key, or the api_key query parameter"
// @Success      200 {object} map[string]any
// @Failure      400 {object} dto.WebNotiError
// @Failure      401 {object} dto.WebNotiError
// @Failure      500 {object} dto.WebNotiError
// @Router       /api/webnoti/subscribe [post]
func (h *WebNotiHandler) Subscribe(c *gin.Context) {
	h.proxy(c, h.service.Subscribe)
}

func (h *WebNotiHandler) proxy(c *gin.Context, call func(context.Context, []byte) (*notificationapp.ProxyResult, error)) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}

	result, err := call(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err, "Upstream request failed")
		return
	}
	h.respond(c, http.StatusOK, dto.NewWebNotiSuccess(map[string]any{
		"status": result.StatusCode,
		"result": result.Body,
	}))
}

// readPayload reads at most maxPayload bytes of body
func (h *WebNotiHandler) readPayload(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPayload+1))
	if err != nil {
		h.respond(c, http.StatusBadRequest, dto.NewWebNotiError("Request body cannot be read"))
		return nil, false
	}
	if int64(len(payload)) > h.maxPayload {
		h.respond(c, http.StatusBadRequest, dto.NewWebNotiError("Request body is too large"))
		return nil, false
	}
	if len(payload) == 0 {
		h.respond(c, http.StatusBadRequest, dto.NewWebNotiError("Request body is empty"))
		return nil, false
	}
	return payload, true
}

// fail maps service errors: domain errors are caller mistakes, the rest are
// persistence or upstream failures reported with details.
func (h *WebNotiHandler) fail(c *gin.Context, err error, message string) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.respond(c, http.StatusBadRequest, dto.NewWebNotiError(domainErr.Message))
		return
	}
	logger.GetGinLogger(c).Error("WebNoti request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	h.respond(c, http.StatusInternalServerError, dto.NewWebNotiErrorWithDetails(message, err.Error()))
}

func (h *WebNotiHandler) respond(c *gin.Context, status int, body any) {
	metrics.IncWebhook(c.FullPath(), status)
	c.JSON(status, body)
}
