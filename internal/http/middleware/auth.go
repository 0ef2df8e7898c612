// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-credential authentication. RequireAuth
// verifies the Authorization header, resolves the token subject to a user
// record, and stores both the id and the full user in the Gin context for
// downstream handlers.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chatroom-backend/internal/domain"
	"github.com/tbourn/go-chatroom-backend/internal/services"
)

// Context keys set by RequireAuth.
const (
	ctxKeyUserID      = "userID"
	ctxKeyCurrentUser = "currentUser"
)

// RequireAuth returns a middleware that rejects requests without a valid
// bearer token. A missing or invalid token is 401; a valid token whose
// subject no longer exists is 404. Both responses use the standard
// envelope and never reveal which check failed beyond that distinction.
func RequireAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "No token provided",
			})
			return
		}

		userID, err := auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			return
		}

		user, err := auth.CurrentUser(c.Request.Context(), userID)
		if errors.Is(err, services.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "User not found",
			})
			return
		}
		if err != nil {
			LoggerFrom(c).Error().Err(err).Msg("auth lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		c.Set(ctxKeyUserID, user.ID)
		c.Set(ctxKeyCurrentUser, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by RequireAuth, or
// nil when the route is unauthenticated.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxKeyCurrentUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
