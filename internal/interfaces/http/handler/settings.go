package handler

import (
	"context"

	settingsapp "github.com/contabilidad/backend/internal/application/settings"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettingsService is the application surface used by SettingsHandler
type SettingsService interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*settingsapp.SettingsResponse, error)
	Update(ctx context.Context, tenantID uuid.UUID, req settingsapp.UpdateSettingsRequest) (*settingsapp.SettingsResponse, error)
	Preview(ctx context.Context, tenantID uuid.UUID, req settingsapp.PreviewRequest) (*settingsapp.PreviewResponse, error)
}

// SettingsHandler serves tenant accounting settings and format previews
type SettingsHandler struct {
	BaseHandler
	service SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetAccountingSettings godoc
// @ID           getAccountingSettings
// @Summary      Get accounting settings
// @Description  Returns the tenant's formatting and tax settings, or the defaults when none are stored
// @Tags         settings
// @Produce      json
// @Success      200 {object} APIResponse[settingsapp.SettingsResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /settings/accounting [get]
func (h *SettingsHandler) GetAccountingSettings(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateAccountingSettings godoc
// @ID           updateAccountingSettings
// @Summary      Update accounting settings
// @Description  Partially updates the tenant's settings; omitted fields keep their value
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request body settingsapp.UpdateSettingsRequest true "Changes"
// @Success      200 {object} APIResponse[settingsapp.SettingsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /settings/accounting [put]
func (h *SettingsHandler) UpdateAccountingSettings(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req settingsapp.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.service.Update(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PreviewFormat godoc
// @ID           previewFormat
// @Summary      Preview number formatting
// @Description  Formats each value as number, amount and money with the tenant's settings or an override
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request body settingsapp.PreviewRequest true "Values to format"
// @Success      200 {object} APIResponse[settingsapp.PreviewResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /format/preview [post]
func (h *SettingsHandler) PreviewFormat(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req settingsapp.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.service.Preview(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
