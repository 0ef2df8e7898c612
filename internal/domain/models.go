// Package domain defines the persistence models for users and chat
// messages. These types are mapped with GORM and form the core data layer
// of the chat application.
package domain

import "time"

// Message kinds accepted by the message log.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// User represents a registered chat participant.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: unique handle, 3–20 characters.
//   - Email: unique, stored lowercase.
//   - PasswordHash: bcrypt hash; never serialized.
//   - IsOnline / LastSeen: presence summary maintained by the auth and
//     gateway layers on login/logout/disconnect.
//   - Avatar: optional URL to a profile image.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username"  gorm:"type:varchar(20);not null;uniqueIndex"`
	Email        string    `json:"email"     gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-"         gorm:"type:varchar(255);not null"`
	IsOnline     bool      `json:"isOnline"  gorm:"not null;default:false"`
	LastSeen     time.Time `json:"lastSeen"`
	Avatar       string    `json:"avatar"    gorm:"type:varchar(512)"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Message represents a durable chat message, public or private.
//
// SenderUsername and RecipientUsername are denormalized snapshots taken at
// creation time; they are never re-joined against the users table on read.
//
// Soft deletion is an explicit tombstone: IsDeleted rows are excluded from
// every read query but never physically removed. The flag is deliberately
// not gorm.DeletedAt so that read paths filter it visibly.
//
// Invariants:
//   - Content is non-empty after trimming and at most 1000 characters.
//   - RecipientID/RecipientUsername are set iff IsPrivate is true.
//   - EditedAt is set only when IsEdited transitions false→true.
type Message struct {
	ID                string     `json:"id"                gorm:"type:char(36);primaryKey"`
	SenderID          string     `json:"senderId"          gorm:"type:char(36);not null;index:idx_msg_sender"`
	SenderUsername    string     `json:"senderUsername"    gorm:"type:varchar(20);not null"`
	Content           string     `json:"content"           gorm:"type:varchar(1000);not null"`
	MessageType       string     `json:"messageType"       gorm:"type:varchar(16);not null;default:'text';check:message_type IN ('text','image','file','system')"`
	IsPrivate         bool       `json:"isPrivate"         gorm:"not null;default:false"`
	RecipientID       *string    `json:"recipientId"       gorm:"type:char(36);index:idx_msg_recipient"`
	RecipientUsername *string    `json:"recipientUsername" gorm:"type:varchar(20)"`
	IsEdited          bool       `json:"isEdited"          gorm:"not null;default:false"`
	EditedAt          *time.Time `json:"editedAt"`
	IsDeleted         bool       `json:"-"                 gorm:"not null;default:false;index"`
	DeletedAt         *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"         gorm:"index:idx_msg_created"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ValidMessageType reports whether t is one of the accepted message kinds.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	default:
		return false
	}
}
