// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the durable message log. It validates and normalizes content,
// snapshots sender/recipient usernames at creation time, and enforces the
// sender-only edit/delete contract. Pagination is limit/page based with a
// hasMore flag derived from the returned count.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// include user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chatroom-backend/internal/domain"
	"github.com/tbourn/go-chatroom-backend/internal/repo"
)

// maxContentRunes is the hard cap on message content length.
const maxContentRunes = 1000

// MessageService coordinates message persistence and retrieval.
type MessageService struct {
	DB *gorm.DB

	// StoreTimeout caps individual persistence calls.
	StoreTimeout time.Duration
}

func (s *MessageService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.StoreTimeout
	if d <= 0 {
		d = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// validateContent trims and bounds message content. The length check runs
// before any store access so oversized payloads never reach the log.
func validateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		return "", ErrContentTooLong
	}
	return content, nil
}

// Send validates and persists a new message from sender. For private
// messages the recipient must exist; its username is snapshotted onto the
// row alongside the sender's.
func (s *MessageService) Send(ctx context.Context, sender *domain.User, content, messageType string, isPrivate bool, recipientID string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("user.id", sender.ID),
			attribute.Bool("message.private", isPrivate),
		),
	)
	defer span.End()

	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	if !domain.ValidMessageType(messageType) {
		return nil, ErrInvalidMessageType
	}

	m := &domain.Message{
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Content:        content,
		MessageType:    messageType,
		IsPrivate:      isPrivate,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if isPrivate {
		if strings.TrimSpace(recipientID) == "" {
			return nil, ErrMissingRecipient
		}
		rcpt, err := repo.GetUser(sctx, s.DB, recipientID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		if err != nil {
			return nil, err
		}
		m.RecipientID = &rcpt.ID
		m.RecipientUsername = &rcpt.Username
	}

	return repo.CreateMessage(sctx, s.DB, m)
}

// ListPublicPage returns one page of the public timeline in oldest-first
// display order, plus a hasMore flag. The underlying query is newest-first
// so the page always holds the most recent messages; it is reversed before
// returning.
func (s *MessageService) ListPublicPage(ctx context.Context, page, limit int) ([]domain.Message, bool, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPublicPage",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("limit", limit)),
	)
	defer span.End()

	page, limit = clampPage(page, limit)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	msgs, err := repo.ListPublicMessages(sctx, s.DB, (page-1)*limit, limit)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(msgs) == limit
	reverse(msgs)
	return msgs, hasMore, nil
}

// ListPrivatePage returns one page of the private thread between userID and
// otherID (either direction), oldest-first, plus the other participant and
// a hasMore flag. A vanished participant is ErrUserNotFound.
func (s *MessageService) ListPrivatePage(ctx context.Context, userID, otherID string, page, limit int) ([]domain.Message, *domain.User, bool, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPrivatePage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	page, limit = clampPage(page, limit)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	other, err := repo.GetUser(sctx, s.DB, otherID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, false, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, false, err
	}

	msgs, err := repo.ListPrivateMessages(sctx, s.DB, userID, otherID, (page-1)*limit, limit)
	if err != nil {
		return nil, nil, false, err
	}
	hasMore := len(msgs) == limit
	reverse(msgs)
	return msgs, other, hasMore, nil
}

// Edit replaces the content of a message owned by requesterID. Ownership
// failures and missing ids are both ErrMessageNotFound.
func (s *MessageService) Edit(ctx context.Context, requesterID, messageID, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Edit",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	m, err := repo.UpdateMessageContent(sctx, s.DB, messageID, requesterID, content)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

// Delete tombstones a message owned by requesterID. Ownership failures and
// missing ids are both ErrMessageNotFound.
func (s *MessageService) Delete(ctx context.Context, requesterID, messageID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	err := repo.SoftDeleteMessage(sctx, s.DB, messageID, requesterID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}

// clampPage bounds page/limit to sane defaults: page >= 1, limit in [1,100]
// with a default of 50.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// reverse flips a slice of messages in place (newest-first → oldest-first).
func reverse(msgs []domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
