// Package services – AuthService
//
// This file implements AuthService, the application-level component that
// owns user registration, credential verification, bearer token issue and
// verification, and online-status bookkeeping. Password hashes are bcrypt
// (cost 12); comparison happens inside bcrypt and is constant-time at the
// library level.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// user identifiers but never credentials.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chatroom-backend/internal/domain"
	"github.com/tbourn/go-chatroom-backend/internal/repo"
)

const bcryptCost = 12

// defaultStoreTimeout bounds every durable-store call so a wedged database
// surfaces as a recoverable error rather than a hang.
const defaultStoreTimeout = 5 * time.Second

// AuthService coordinates user accounts and bearer credentials.
type AuthService struct {
	DB        *gorm.DB
	JWTSecret []byte
	TokenTTL  time.Duration // defaults to 7 days when zero

	// StoreTimeout caps individual persistence calls.
	StoreTimeout time.Duration
}

// storeCtx derives a bounded context for a persistence call.
func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.StoreTimeout
	if d <= 0 {
		d = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// Register validates the payload, hashes the password, and creates the user.
// It returns the persisted user and a freshly issued bearer token.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer span.End()

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return nil, "", ErrMissingFields
	}
	if len(username) < 3 || len(username) > 20 {
		return nil, "", ErrUsernameLength
	}
	if len(password) < 6 {
		return nil, "", ErrPasswordLength
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	taken, err := repo.UserExists(sctx, s.DB, username, email)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", err
	}

	u, err := repo.CreateUser(sctx, s.DB, username, email, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies an identifier (username or email) and password, marks the
// user online, and issues a bearer token. Unknown identifiers and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", ErrMissingFields
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := repo.GetUserByIdentifier(sctx, s.DB, identifier)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := repo.SetOnlineStatus(sctx, s.DB, u.ID, true, now); err != nil {
		return nil, "", err
	}
	u.IsOnline = true
	u.LastSeen = now

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout marks the user offline and stamps last_seen. A vanished user is
// reported as ErrUserNotFound.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	err := repo.SetOnlineStatus(sctx, s.DB, userID, false, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// CurrentUser resolves a user id (typically a verified token subject) to the
// full user record.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := repo.GetUser(sctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListUsers returns all registered users ordered by username, for the
// online-users sidebar.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return repo.ListUsers(sctx, s.DB)
}

// IssueToken signs an HS256 bearer token whose subject is the user id.
func (s *AuthService) IssueToken(userID string) (string, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// ParseToken verifies a bearer token and returns its subject (the user id).
// Any parse, signature, or expiry failure collapses to ErrInvalidToken.
func (s *AuthService) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.JWTSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
