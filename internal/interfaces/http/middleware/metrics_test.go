package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHTTPMetrics_UsesRoutePattern(t *testing.T) {
	metrics.Init(nil, zap.NewNop())

	router := gin.New()
	router.Use(HTTPMetrics())
	router.GET("/api/v1/documents/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/documents/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))

	out := scrape(t)
	assert.Contains(t, out, `contabilidad_http_requests_total{code="404",method="GET",route="/api/v1/documents/:id"}`)
	assert.Contains(t, out, `route="unmatched"`)
	assert.NotContains(t, out, "/api/v1/documents/abc")
	assert.NotContains(t, out, "wp-login")
}
