package middleware

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/contabilidad/backend/internal/domain/shared/numformat"
	"github.com/contabilidad/backend/internal/domain/shared/valueobject"
	"github.com/contabilidad/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "request_id"

// B + type (2) + sequence (8), or electronic E + type (2) + sequence (10)
var ncfPattern = regexp.MustCompile(`^(B\d{10}|E\d{12})$`)

// SetupValidator registers the accounting tags and reports fields by their
// JSON (or form) name
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("ncf", validateNCF)
	_ = v.RegisterValidation("iso4217", validateCurrency)
	_ = v.RegisterValidation("number_format", validateNumberFormat)
	_ = v.RegisterValidation("rnc", validateRNC)
}

func validateNCF(fl validator.FieldLevel) bool {
	return ncfPattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
}

func validateCurrency(fl validator.FieldLevel) bool {
	_, err := valueobject.ParseCurrency(fl.Field().String())
	return err == nil
}

func validateNumberFormat(fl validator.FieldLevel) bool {
	return numformat.IsKnownPattern(fl.Field().String())
}

// validateRNC accepts what the settings aggregate accepts, including "" to clear it
func validateRNC(fl validator.FieldLevel) bool {
	_, err := settings.NormalizeRNC(fl.Field().String())
	return err == nil
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestID(c)))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "ncf":
		return "Must be a fiscal receipt number such as B0100000001 or E310000000001"
	case "iso4217":
		return "Must be an ISO 4217 currency code"
	case "number_format":
		return "Must be one of: " + strings.Join(numformat.KnownPatterns(), ", ")
	case "rnc":
		return "Must be an RNC (9 digits) or cédula (11 digits)"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "datetime":
		return "Must be a date in " + e.Param() + " layout"
	default:
		return "Invalid value"
	}
}
