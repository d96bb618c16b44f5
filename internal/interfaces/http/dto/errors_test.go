package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorTranslation(t *testing.T) {
	tests := []struct {
		domainCode string
		apiCode    string
		status     int
	}{
		{"NOT_FOUND", ErrCodeNotFound, http.StatusNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists, http.StatusConflict},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"OVERPAYMENT", ErrCodeOverpayment, http.StatusUnprocessableEntity},
		{"CURRENCY_MISMATCH", ErrCodeCurrencyMismatch, http.StatusUnprocessableEntity},
		{"INVALID_STATE", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"INVALID_OPEN_ITEM", ErrCodeInvalidOpenItem, http.StatusUnprocessableEntity},
		{"STORAGE_DISABLED", ErrCodeStorageDisabled, http.StatusServiceUnavailable},
		{"UPSTREAM_FAILED", ErrCodeUpstreamFailed, http.StatusBadGateway},
		{"FORBIDDEN", ErrCodeForbidden, http.StatusForbidden},
		// entity validation codes are not translated and read as bad input
		{"INVALID_NCF", "INVALID_NCF", http.StatusBadRequest},
		{"INVALID_DUE_DATE", "INVALID_DUE_DATE", http.StatusBadRequest},
		{"INVALID_RNC", "INVALID_RNC", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.domainCode, func(t *testing.T) {
			code := NormalizeErrorCode(tt.domainCode)
			assert.Equal(t, tt.apiCode, code)
			assert.Equal(t, tt.status, GetDomainHTTPStatus(code))
		})
	}
}

func TestNormalizeErrorCode_APICodesPassThrough(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		assert.Equal(t, code, NormalizeErrorCode(code))
	}
}

func TestErrorCodeTables(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		assert.True(t, strings.HasPrefix(code, "ERR_"), code)
		assert.Equal(t, strings.ToUpper(code), code)
	}
	for domainCode, apiCode := range DomainErrorCodes {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "%s translates to %s which has no status", domainCode, apiCode)
	}
}

func TestGetHTTPStatus_UnknownIsInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("ERR_SOMETHING_NEW"))
	assert.Equal(t, http.StatusTooManyRequests, GetHTTPStatus(ErrCodeRateLimited))
	assert.Equal(t, http.StatusUnauthorized, GetHTTPStatus(ErrCodeTokenExpired))
}

func TestNewErrorResponse(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponseWithRequestID("OVERPAYMENT", "Payment amount 900.00 exceeds outstanding amount 800.00", "req-42")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOverpayment, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.Before(before))

	data, err := json.Marshal(NewErrorResponse(ErrCodeNotFound, "Document not found"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "request_id")
	assert.NotContains(t, string(data), `"data"`)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "ncf", Message: "This field is required"},
		{Field: "currency", Message: "Must be an ISO 4217 currency code"},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "ncf", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, defaultPageSize},
		{100, -1, 5, defaultPageSize},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
		assert.Equal(t, tt.total, resp.Meta.Total)
	}
}
