package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	userIDKey   = "user_id"
	usernameKey = "username"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// AdminChecker reports whether a user may manage reference data.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// AuthMiddleware creates a middleware that validates JWT tokens
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		if !authenticate(c, validator) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a token is sent and lets
// anonymous requests through. A malformed or expired token is still rejected.
func OptionalAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" && !authenticate(c, validator) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, validator TokenValidator) bool {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || (parts[0] != "Bearer" && parts[0] != "Token") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
		return false
	}

	claims, err := validator.ValidateToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return false
	}

	// Store user info in context
	c.Set(userIDKey, claims.UserID)
	c.Set(usernameKey, claims.Username)
	return true
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	id, _ := c.Get(userIDKey)
	userID, _ := id.(uint)
	return userID
}

// RequireAdmin aborts with 403 unless the authenticated user is an admin. It
// must run after AuthMiddleware.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := checker.IsAdmin(c.Request.Context(), UserID(c))
		if err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("admin check failed")
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}
