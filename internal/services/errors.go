// Package services defines the business logic for authentication, presence
// status, and the durable message log. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Authentication errors.
var (
	// ErrInvalidCredentials is returned when a login identifier/password
	// pair does not match a registered user. The same value is used for
	// unknown identifiers and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned when a registration collides with an
	// existing username or email.
	ErrUserExists = errors.New("username or email already exists")

	// ErrInvalidToken is returned when a bearer token is missing, expired,
	// or fails signature verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserNotFound indicates that a referenced user no longer exists,
	// e.g. a valid token whose subject has vanished.
	ErrUserNotFound = errors.New("user not found")
)

// Registration input errors.
var (
	// ErrMissingFields is returned when a registration or login payload
	// lacks a required field.
	ErrMissingFields = errors.New("missing required fields")

	// ErrUsernameLength is returned when a username is outside 3–20 chars.
	ErrUsernameLength = errors.New("username must be between 3 and 20 characters")

	// ErrPasswordLength is returned when a password is shorter than 6 chars.
	ErrPasswordLength = errors.New("password must be at least 6 characters long")
)

// Message log errors.
var (
	// ErrEmptyContent is returned when message content is empty after
	// trimming.
	ErrEmptyContent = errors.New("message content is required")

	// ErrContentTooLong is returned when message content exceeds the
	// maximum length.
	ErrContentTooLong = errors.New("message content is too long (max 1000 characters)")

	// ErrInvalidMessageType is returned when the message kind is not one of
	// text, image, file, or system.
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrMissingRecipient is returned when a private message omits the
	// recipient id.
	ErrMissingRecipient = errors.New("recipient id is required for private messages")

	// ErrRecipientNotFound is returned when the private recipient does not
	// exist.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrMessageNotFound covers both a missing message and an ownership
	// failure on edit/delete. The two causes are deliberately merged so
	// callers cannot probe for the existence of other users' messages.
	ErrMessageNotFound = errors.New("message not found or not yours to modify")
)
