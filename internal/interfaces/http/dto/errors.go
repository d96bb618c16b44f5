package dto

import "net/http"

// API error codes follow ERR_<CATEGORY>_<DESCRIPTION>. Domain errors carry
// short codes (OVERPAYMENT, NOT_FOUND, ...) that are translated on the way out.

const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is a domain value rejected after binding succeeded
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeUnsupportedFormat is an unknown export format
	ErrCodeUnsupportedFormat = "ERR_UNSUPPORTED_FORMAT"
	ErrCodePayloadTooLarge   = "ERR_PAYLOAD_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is a second document with the same NCF
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is a save against a stale version
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Accounting rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeOverpayment is a payment above the outstanding amount
	ErrCodeOverpayment = "ERR_OVERPAYMENT"
	// ErrCodeCurrencyMismatch is a payment in another currency than its document
	ErrCodeCurrencyMismatch = "ERR_CURRENCY_MISMATCH"
	// ErrCodeInvalidOpenItem is an item strict aging refused to skip
	ErrCodeInvalidOpenItem = "ERR_INVALID_OPEN_ITEM"
)

// Dependency error codes
const (
	ErrCodeUpstreamFailed  = "ERR_UPSTREAM_FAILED"
	ErrCodeStorageDisabled = "ERR_STORAGE_DISABLED"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeUnsupportedFormat: http.StatusBadRequest,
	ErrCodePayloadTooLarge:   http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// the request was understood but the books do not allow it
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeOverpayment:      http.StatusUnprocessableEntity,
	ErrCodeCurrencyMismatch: http.StatusUnprocessableEntity,
	ErrCodeInvalidOpenItem:  http.StatusUnprocessableEntity,

	ErrCodeUpstreamFailed:  http.StatusBadGateway,
	ErrCodeStorageDisabled: http.StatusServiceUnavailable,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodes translates domain error codes into API error codes
var DomainErrorCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"OVERPAYMENT":          ErrCodeOverpayment,
	"CURRENCY_MISMATCH":    ErrCodeCurrencyMismatch,
	"INVALID_OPEN_ITEM":    ErrCodeInvalidOpenItem,
	"UPSTREAM_FAILED":      ErrCodeUpstreamFailed,
	"STORAGE_DISABLED":     ErrCodeStorageDisabled,
}

// GetDomainHTTPStatus returns the status for a domain error code. Domain
// codes without a mapping are input validation failures.
func GetDomainHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// NormalizeErrorCode converts a domain error code to its API code. Codes
// without a translation (INVALID_NCF, INVALID_DUE_DATE, ...) pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
