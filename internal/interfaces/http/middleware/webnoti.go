package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/contabilidad/backend/internal/infrastructure/metrics"
	"github.com/contabilidad/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Headers and query parameter checked on the notification endpoints
const (
	WebNotiSecretHeader = "x-webnoti-secret"
	WebNotiAPIKeyHeader = "x-api-key"
	WebNotiAPIKeyQuery  = "api_key"
)

// webNotiAbort ends the request with the {ok:false} envelope and counts it
func webNotiAbort(c *gin.Context, status int, body dto.WebNotiError) {
	metrics.IncWebhook(c.FullPath(), status)
	c.AbortWithStatusJSON(status, body)
}

// WebNotiPostOnly answers 405 for anything but POST
func WebNotiPostOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Header("Allow", http.MethodPost)
			webNotiAbort(c, http.StatusMethodNotAllowed, dto.NewWebNotiError("Method not allowed"))
			return
		}
		c.Next()
	}
}

// WebNotiSecret authenticates inbound webhooks with the shared secret header
func WebNotiSecret(secret string, log *zap.Logger) gin.HandlerFunc {
	return requireSharedValue(secret, log, "webhook secret", func(c *gin.Context) string {
		return c.GetHeader(WebNotiSecretHeader)
	})
}

// WebNotiAPIKey authenticates proxy calls with the API key header or query
func WebNotiAPIKey(apiKey string, log *zap.Logger) gin.HandlerFunc {
	return requireSharedValue(apiKey, log, "api key", func(c *gin.Context) string {
		if key := c.GetHeader(WebNotiAPIKeyHeader); key != "" {
			return key
		}
		return c.Query(WebNotiAPIKeyQuery)
	})
}

func requireSharedValue(expected string, log *zap.Logger, what string, extract func(*gin.Context) string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if expected == "" {
			log.Error("WebNoti endpoint called without configured "+what, zap.String("path", c.Request.URL.Path))
			webNotiAbort(c, http.StatusInternalServerError,
				dto.NewWebNotiErrorWithDetails("Server misconfigured", what+" is not configured"))
			return
		}
		got := extract(c)
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			log.Warn("WebNoti authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Bool("provided", got != ""),
			)
			webNotiAbort(c, http.StatusUnauthorized, dto.NewWebNotiError("Unauthorized"))
			return
		}
		c.Next()
	}
}
