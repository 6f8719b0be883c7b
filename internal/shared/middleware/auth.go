package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-backoffice/internal/shared/auth"
	"restaurant-backoffice/internal/shared/response"
	"restaurant-backoffice/pkg/jwt"
	"restaurant-backoffice/pkg/logger"
)

const principalKey = "principal"

// AuthMiddleware verifies the bearer token and stores the caller's
// auth.Principal in both the gin and the request context.
func AuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		// 2. Verify the token
		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			logger.Debug("rejected token: " + err.Error())
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid user id in token")
			c.Abort()
			return
		}

		// 3. Build the principal
		p := &auth.Principal{
			UserID:      userID,
			Role:        claims.Role,
			Permissions: claims.Permissions,
		}
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

// RequirePermission lets the request through only when the principal may
// perform action on module.
func RequirePermission(module, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}

		if !p.Can(module, action) {
			logger.Warn("permission denied", map[string]interface{}{
				"user_id": p.UserID,
				"role":    p.Role,
				"module":  module,
				"action":  action,
			})
			response.Forbidden(c, "missing permission "+module+":"+action)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetPrincipal returns the principal set by AuthMiddleware, or nil
func GetPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}
