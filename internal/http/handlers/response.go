// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints. Every response, success or failure, carries the stable
// envelope:
//
//	{ "success": true|false, "message": "...", ...data }
//
// Conventions:
//   - fail() centralizes error formatting and ensures 5xx responses are
//     logged with request context for observability.
//   - Internal errors collapse to a generic message; details never leak
//     to clients.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{ "success": false, "message": "Message not found or you do not have permission to edit it" }
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chatroom-backend/internal/http/middleware"
	"github.com/tbourn/go-chatroom-backend/internal/services"
)

// fail aborts the request with the standard failure envelope. Server
// errors (>=500) are logged with the request-scoped logger.
func fail(c *gin.Context, status int, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": msg,
	})
}

// Fail is the exported variant of fail(), for router-level fallbacks.
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg) }

// ok writes a success JSON response. The body is expected to include
// "success": true (gin.H literals at the call sites keep the shape visible).
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// failFromService translates service-layer errors into HTTP failures,
// logging and masking anything unclassified as a generic 500.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrUsernameLength),
		errors.Is(err, services.ErrPasswordLength),
		errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong),
		errors.Is(err, services.ErrInvalidMessageType),
		errors.Is(err, services.ErrMissingRecipient):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRecipientNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unexpected service error")
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
