package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contabilidad/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentInput struct {
	NCF      string  `json:"ncf" binding:"required,ncf"`
	Currency string  `json:"currency" binding:"omitempty,iso4217"`
	Format   *string `json:"number_format" binding:"omitempty,number_format"`
	RNC      *string `json:"rnc" binding:"omitempty,rnc"`
}

func newValidationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	r := gin.New()
	r.POST("/validate", func(c *gin.Context) {
		var in documentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(in))
	})
	return r
}

func postValidate(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupValidator_AccountingTags(t *testing.T) {
	r := newValidationRouter()

	tests := []struct {
		name  string
		body  string
		valid bool
		field string
	}{
		{"paper NCF", `{"ncf":"B0100000001"}`, true, ""},
		{"electronic NCF", `{"ncf":"E310000000001"}`, true, ""},
		{"lower case NCF", `{"ncf":"b0100000001"}`, true, ""},
		{"short NCF", `{"ncf":"B01"}`, false, "ncf"},
		{"NCF with letters", `{"ncf":"B01000000AB"}`, false, "ncf"},
		{"missing NCF", `{}`, false, "ncf"},
		{"known currency", `{"ncf":"B0100000001","currency":"usd"}`, true, ""},
		{"unknown currency", `{"ncf":"B0100000001","currency":"XYZ1"}`, false, "currency"},
		{"comma decimal format", `{"ncf":"B0100000001","number_format":"1.234,56"}`, true, ""},
		{"unknown format", `{"ncf":"B0100000001","number_format":"1'234.56"}`, false, "number_format"},
		{"RNC with dashes", `{"ncf":"B0100000001","rnc":"101-01234-5"}`, true, ""},
		{"cedula", `{"ncf":"B0100000001","rnc":"00112345678"}`, true, ""},
		{"empty RNC clears", `{"ncf":"B0100000001","rnc":""}`, true, ""},
		{"RNC too short", `{"ncf":"B0100000001","rnc":"1234"}`, false, "rnc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postValidate(r, tt.body)
			if tt.valid {
				assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
				return
			}

			require.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			assert.NotEqual(t, "Invalid value", resp.Error.Details[0].Message)
		})
	}
}

func TestHandleValidationError_Messages(t *testing.T) {
	r := newValidationRouter()

	w := postValidate(r, `{"ncf":"X1","currency":"??","number_format":"bad"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	messages := map[string]string{}
	for _, d := range resp.Error.Details {
		messages[d.Field] = d.Message
	}

	assert.Contains(t, messages["ncf"], "fiscal receipt number")
	assert.Equal(t, "Must be an ISO 4217 currency code", messages["currency"])
	assert.Equal(t, "Must be one of: 1,234.56, 1.234,56, 1 234.56", messages["number_format"])
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	r := newValidationRouter()

	w := postValidate(r, `{"ncf":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}
