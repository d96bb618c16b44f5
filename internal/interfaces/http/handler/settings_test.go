package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	settingsapp "github.com/contabilidad/backend/internal/application/settings"
	"github.com/contabilidad/backend/internal/domain/shared"
	"github.com/contabilidad/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSettingsService implements SettingsService for testing
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, tenantID uuid.UUID) (*settingsapp.SettingsResponse, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, tenantID uuid.UUID, req settingsapp.UpdateSettingsRequest) (*settingsapp.SettingsResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Preview(ctx context.Context, tenantID uuid.UUID, req settingsapp.PreviewRequest) (*settingsapp.PreviewResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.PreviewResponse), args.Error(1)
}

func newSettingsRouter(svc SettingsService, tenantID uuid.UUID) *gin.Engine {
	h := NewSettingsHandler(svc)
	router := gin.New()
	auth := router.Group("/", withTenant(tenantID, uuid.New()))
	auth.GET("/settings/accounting", h.GetAccountingSettings)
	auth.PUT("/settings/accounting", h.UpdateAccountingSettings)
	auth.POST("/format/preview", h.PreviewFormat)
	router.GET("/anonymous/settings", h.GetAccountingSettings)
	return router
}

func TestSettingsHandler_Get(t *testing.T) {
	tenantID := uuid.New()
	svc := new(MockSettingsService)
	svc.On("Get", mock.Anything, tenantID).Return(&settingsapp.SettingsResponse{
		TenantID:        tenantID,
		DefaultCurrency: "DOP",
		NumberFormat:    "1,234.56",
		Preview:         "RD$ 1,234,567.89",
	}, nil)

	w := httptest.NewRecorder()
	newSettingsRouter(svc, tenantID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings/accounting", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "RD$ 1,234,567.89", data["preview"])
	assert.Equal(t, tenantID.String(), data["tenant_id"])
	svc.AssertExpectations(t)
}

func TestSettingsHandler_GetWithoutTenant(t *testing.T) {
	svc := new(MockSettingsService)

	w := httptest.NewRecorder()
	newSettingsRouter(svc, uuid.New()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/anonymous/settings", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSettingsHandler_Update(t *testing.T) {
	tenantID := uuid.New()
	svc := new(MockSettingsService)
	svc.On("Update", mock.Anything, tenantID, mock.MatchedBy(func(req settingsapp.UpdateSettingsRequest) bool {
		return req.NumberFormat != nil && *req.NumberFormat == "1.234,56" &&
			req.DecimalPlaces != nil && *req.DecimalPlaces == 0 &&
			req.CompanyName == nil
	})).Return(&settingsapp.SettingsResponse{TenantID: tenantID, NumberFormat: "1.234,56"}, nil)

	body := `{"number_format":"1.234,56","decimal_places":0}`
	req := httptest.NewRequest(http.MethodPut, "/settings/accounting", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newSettingsRouter(svc, tenantID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSettingsHandler_UpdateErrors(t *testing.T) {
	tenantID := uuid.New()

	t.Run("malformed JSON", func(t *testing.T) {
		svc := new(MockSettingsService)
		req := httptest.NewRequest(http.MethodPut, "/settings/accounting", strings.NewReader(`{"decimal_places":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		newSettingsRouter(svc, tenantID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("domain validation", func(t *testing.T) {
		svc := new(MockSettingsService)
		svc.On("Update", mock.Anything, tenantID, mock.Anything).
			Return(nil, shared.NewDomainError("INVALID_DECIMAL_PLACES", "Decimal places must be between 0 and 6"))

		req := httptest.NewRequest(http.MethodPut, "/settings/accounting", strings.NewReader(`{"decimal_places":9}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		newSettingsRouter(svc, tenantID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "INVALID_DECIMAL_PLACES", resp.Error.Code)
	})

	t.Run("version conflict", func(t *testing.T) {
		svc := new(MockSettingsService)
		svc.On("Update", mock.Anything, tenantID, mock.Anything).Return(nil, shared.ErrConflict)

		req := httptest.NewRequest(http.MethodPut, "/settings/accounting", strings.NewReader(`{"rnc":"101-01234-5"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		newSettingsRouter(svc, tenantID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeResponse(t, w).Error.Code)
	})
}

func TestSettingsHandler_PreviewFormat(t *testing.T) {
	tenantID := uuid.New()
	svc := new(MockSettingsService)
	svc.On("Preview", mock.Anything, tenantID, mock.MatchedBy(func(req settingsapp.PreviewRequest) bool {
		return len(req.Values) == 2 && string(req.Values[0]) == "1234.5" && req.Label == "US$"
	})).Return(&settingsapp.PreviewResponse{
		Lines: []settingsapp.PreviewLine{
			{Number: "1,234.50", Amount: "1,234.50", Money: "US$ 1,234.50"},
			{Number: "0.00", Amount: "0.00", Money: "US$ 0.00"},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/format/preview", strings.NewReader(`{"values":[1234.5,null],"label":"US$"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newSettingsRouter(svc, tenantID).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	lines := decodeResponse(t, w).Data.(map[string]any)["lines"].([]any)
	assert.Len(t, lines, 2)
	assert.Equal(t, "US$ 1,234.50", lines[0].(map[string]any)["money"])
	svc.AssertExpectations(t)
}

func TestSettingsHandler_PreviewRequiresValues(t *testing.T) {
	svc := new(MockSettingsService)

	req := httptest.NewRequest(http.MethodPost, "/format/preview", strings.NewReader(`{"label":"RD$"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newSettingsRouter(svc, uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}
