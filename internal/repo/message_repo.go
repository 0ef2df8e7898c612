// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model.
//
// Every read query excludes soft-deleted rows (is_deleted tombstones). The
// mutation functions for edit and delete fold the ownership check into the
// WHERE clause so that "not found" and "not yours" are indistinguishable to
// the caller, both surfacing as ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chatroom-backend/internal/domain"
)

// CreateMessage inserts a new message row, assigning a UUID primary key and
// a UTC creation timestamp. The caller supplies sender/recipient snapshots
// and content that have already been validated at the service layer.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) (*domain.Message, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a non-deleted message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListPublicMessages returns a page of public, non-deleted messages ordered
// newest-first (CreatedAt DESC, ID DESC). Callers reverse the slice when an
// oldest-first display order is needed.
func ListPublicMessages(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("is_private = ? AND is_deleted = ?", false, false).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPrivateMessages returns a page of the private thread between userA and
// userB, matching messages in either direction, newest-first.
func ListPrivateMessages(ctx context.Context, db *gorm.DB, userA, userB string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("is_private = ? AND is_deleted = ?", true, false).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateMessageContent replaces the content of a message owned by senderID,
// marking it edited. The single UPDATE carries the ownership and tombstone
// predicates; zero rows affected means missing, deleted, or foreign, all
// reported as ErrNotFound. On success the refreshed row is returned.
func UpdateMessageContent(ctx context.Context, db *gorm.DB, id, senderID, content string) (*domain.Message, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", id, senderID, false).
		Updates(map[string]any{
			"content":   content,
			"is_edited": true,
			"edited_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetMessage(ctx, db, id)
}

// SoftDeleteMessage sets the tombstone flag on a message owned by senderID.
// The row is never physically removed. Zero rows affected is ErrNotFound,
// covering missing, already-deleted, and foreign messages alike.
func SoftDeleteMessage(ctx context.Context, db *gorm.DB, id, senderID string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", id, senderID, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
