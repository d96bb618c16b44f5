package middleware

import (
	"github.com/contabilidad/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Permissions checked by the accounting routes
const (
	PermissionSettingsWrite  = "settings:write"
	PermissionDocumentsWrite = "documents:write"
	PermissionReportsExport  = "reports:export"
)

// RequirePermission creates middleware that requires a specific permission
func RequirePermission(permission string) gin.HandlerFunc {
	return RequirePermissionWithLogger(permission, nil)
}

// RequirePermissionWithLogger is RequirePermission with denial logging
func RequirePermissionWithLogger(permission string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeUnauthorized),
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
			return
		}

		if !claims.HasPermission(permission) {
			if log != nil {
				log.Warn("Permission denied",
					zap.String("user_id", claims.UserID),
					zap.String("required", permission),
					zap.String("path", c.Request.URL.Path),
				)
			}
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeForbidden),
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Missing permission "+permission, getRequestID(c)))
			return
		}

		c.Next()
	}
}
