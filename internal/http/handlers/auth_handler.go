// Auth HTTP handlers.
//
// This file exposes REST endpoints for accounts and credentials:
//   - POST /api/auth/register  (create account, issue token)
//   - POST /api/auth/login     (verify credentials, mark online, issue token)
//   - POST /api/auth/logout    (mark offline; requires bearer)
//   - GET  /api/auth/me        (current user; requires bearer)
//   - GET  /api/auth/users     (directory for the online-users sidebar)
//
// Handlers are transport-thin: they bind input, delegate to AuthService,
// and translate results into the standard envelope.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chatroom-backend/internal/http/middleware"
	"github.com/tbourn/go-chatroom-backend/internal/services"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON payload for logging in. Identifier accepts a
// username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AuthHandlers groups the account endpoints around one AuthService.
type AuthHandlers struct {
	Auth *services.AuthService
}

// Register creates a new account and returns a bearer token with the user.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Please provide username, email, and password")
		return
	}

	user, token, err := h.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// Login verifies credentials, marks the user online, and returns a token.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Please provide username/email and password")
		return
	}

	user, token, err := h.Auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Logout marks the authenticated user offline and stamps last_seen.
func (h *AuthHandlers) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.Auth.Logout(c.Request.Context(), user.ID); err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

// Me returns the authenticated user's record.
func (h *AuthHandlers) Me(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"success": true,
		"user":    middleware.CurrentUser(c),
	})
}

// ListUsers returns all registered users ordered by username.
func (h *AuthHandlers) ListUsers(c *gin.Context) {
	users, err := h.Auth.ListUsers(c.Request.Context())
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success": true,
		"users":   users,
	})
}
