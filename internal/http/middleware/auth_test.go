package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chatroom-backend/internal/domain"
	"github.com/tbourn/go-chatroom-backend/internal/services"
)

func newAuthTestService(t *testing.T) *services.AuthService {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("mw_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &services.AuthService{DB: db, JWTSecret: []byte("test-secret")}
}

// protectedRig mounts RequireAuth in front of a probe that records the
// identity it sees.
func protectedRig(auth *services.AuthService) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.GET("/protected", RequireAuth(auth), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			seen = u.Username
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r, &seen
}

func get(r *gin.Engine, path, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRequireAuth_MissingToken(t *testing.T) {
	auth := newAuthTestService(t)
	r, _ := protectedRig(auth)

	w, out := get(r, "/protected", "")
	if w.Code != http.StatusUnauthorized || out["message"] != "No token provided" {
		t.Fatalf("got %d %v", w.Code, out)
	}

	// bare "Bearer " with no token
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer ")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("empty bearer accepted: %d", w2.Code)
	}

	// non-bearer scheme
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, req)
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("basic scheme accepted: %d", w3.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	auth := newAuthTestService(t)
	r, _ := protectedRig(auth)

	w, out := get(r, "/protected", "not-a-jwt")
	if w.Code != http.StatusUnauthorized || out["message"] != "Invalid token" {
		t.Fatalf("got %d %v", w.Code, out)
	}

	// valid shape, wrong key
	forged, err := (&services.AuthService{JWTSecret: []byte("wrong")}).IssueToken("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w, out = get(r, "/protected", forged)
	if w.Code != http.StatusUnauthorized || out["message"] != "Invalid token" {
		t.Fatalf("forged token: %d %v", w.Code, out)
	}
}

func TestRequireAuth_VanishedSubject(t *testing.T) {
	auth := newAuthTestService(t)
	r, _ := protectedRig(auth)

	// token verifies but its subject never existed
	token, err := auth.IssueToken("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w, out := get(r, "/protected", token)
	if w.Code != http.StatusNotFound || out["message"] != "User not found" {
		t.Fatalf("got %d %v", w.Code, out)
	}
}

func TestRequireAuth_AttachesIdentity(t *testing.T) {
	auth := newAuthTestService(t)
	r, seen := protectedRig(auth)

	_, token, err := auth.Register(context.Background(), "alice", "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	w, _ := get(r, "/protected", token)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if *seen != "alice" {
		t.Fatalf("handler saw %q, want alice", *seen)
	}
}

func TestCurrentUser_NilWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if CurrentUser(c) != nil {
		t.Fatalf("expected nil user on unauthenticated context")
	}
}
