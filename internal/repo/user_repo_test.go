package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chatroom-backend/internal/domain"
)

// test DB helper
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateUser_InsertsRow(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if u.ID == "" || u.Username != "alice" || u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CreatedAt.IsZero() || time.Since(u.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt not set reasonably: %v", u.CreatedAt)
	}

	got, err := GetUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "alice" || got.PasswordHash != "hash" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestCreateUser_DuplicateUsernameRejected(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "alice", "a@example.com", "h"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateUser(ctx, db, "alice", "other@example.com", "h"); err == nil {
		t.Fatalf("expected unique constraint violation on username")
	}
	if _, err := CreateUser(ctx, db, "bob", "a@example.com", "h"); err == nil {
		t.Fatalf("expected unique constraint violation on email")
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	if _, err := GetUser(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByIdentifier_UsernameOrEmail(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	seed, err := CreateUser(ctx, db, "alice", "alice@example.com", "h")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	byName, err := GetUserByIdentifier(ctx, db, "alice")
	if err != nil || byName.ID != seed.ID {
		t.Fatalf("lookup by username: %v / %+v", err, byName)
	}
	byMail, err := GetUserByIdentifier(ctx, db, "alice@example.com")
	if err != nil || byMail.ID != seed.ID {
		t.Fatalf("lookup by email: %v / %+v", err, byMail)
	}
	if _, err := GetUserByIdentifier(ctx, db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identifier, got %v", err)
	}
}

func TestUserExists(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "alice", "alice@example.com", "h"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		username, email string
		want            bool
	}{
		{"alice", "new@example.com", true},
		{"new", "alice@example.com", true},
		{"alice", "alice@example.com", true},
		{"bob", "bob@example.com", false},
	}
	for _, tc := range cases {
		got, err := UserExists(ctx, db, tc.username, tc.email)
		if err != nil {
			t.Fatalf("UserExists(%s,%s): %v", tc.username, tc.email, err)
		}
		if got != tc.want {
			t.Fatalf("UserExists(%s,%s) = %v, want %v", tc.username, tc.email, got, tc.want)
		}
	}
}

func TestSetOnlineStatus(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "alice", "alice@example.com", "h")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	seen := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := SetOnlineStatus(ctx, db, u.ID, true, seen); err != nil {
		t.Fatalf("SetOnlineStatus: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !got.IsOnline || !got.LastSeen.Equal(seen) {
		t.Fatalf("status not applied: online=%v seen=%v", got.IsOnline, got.LastSeen)
	}

	if err := SetOnlineStatus(ctx, db, "missing", false, seen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestListUsers_OrderedByUsername(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := CreateUser(ctx, db, name, name+"@example.com", "h"); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	out, err := ListUsers(ctx, db)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 3 || out[0].Username != "alice" || out[1].Username != "bob" || out[2].Username != "carol" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestListUsers_EmptyTable(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	out, err := ListUsers(context.Background(), db)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty slice, got %+v", out)
	}
}
