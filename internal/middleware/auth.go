package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/jwt"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// Context keys set by Auth
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxVerified = "verified"
)

// Auth validates the Bearer token and sets user_id, role and verified in
// the Gin context
func Auth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, domain.Role(claims.Role))
		c.Set(CtxVerified, claims.Verified)
		c.Next()
	}
}

// RequireVerified rejects users who have not verified their email
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxVerified) {
			response.Forbidden(c, "Email verification required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole rejects users whose role is not in the allowed set
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Insufficient permissions")
		c.Abort()
	}
}

// UserID returns the authenticated user's id from the Gin context
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CtxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// Role returns the authenticated user's role from the Gin context
func Role(c *gin.Context) domain.Role {
	if v, ok := c.Get(CtxRole); ok {
		if r, ok := v.(domain.Role); ok {
			return r
		}
	}
	return ""
}
