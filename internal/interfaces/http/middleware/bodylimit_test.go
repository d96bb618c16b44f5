package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// newBodyLimitRouter echoes how many body bytes the handler could read
func newBodyLimitRouter(maxBytes int64, exempt ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(maxBytes, exempt...))
	echo := func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "read failed")
			return
		}
		c.String(http.StatusOK, "%d", len(data))
	}
	r.POST("/api/v1/reports/aging/import", echo)
	r.POST("/api/webhooks/webnoti", echo)
	return r
}

func TestBodyLimit(t *testing.T) {
	csv := "id,counterparty_id,original_amount\nF-1,C1,1000\n"

	t.Run("upload within limit is read whole", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/aging/import", strings.NewReader(csv))
		newBodyLimitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "47", w.Body.String())
	})

	t.Run("declared length over limit is refused up front", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/aging/import", strings.NewReader(strings.Repeat(csv, 10)))
		newBodyLimitRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_PAYLOAD_TOO_LARGE")
	})

	t.Run("chunked body over limit fails while reading", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/aging/import", strings.NewReader(strings.Repeat(csv, 10)))
		req.ContentLength = -1
		newBodyLimitRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("exempt prefix is left to the handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/webnoti", strings.NewReader(strings.Repeat("x", 500)))
		newBodyLimitRouter(100, "/api/webhooks/").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "500", w.Body.String())
	})

	t.Run("zero disables the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/aging/import", strings.NewReader(strings.Repeat("x", 4096)))
		newBodyLimitRouter(0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4096", w.Body.String())
	})
}
