package handlers

import (
	"bytes"
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
	"github.com/tbourn/go-chatroom-backend/internal/http/middleware"
	"github.com/tbourn/go-chatroom-backend/internal/services"
)

// ---------- test plumbing ----------

func testCtx() context.Context { return context.Background() }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.User{}, &domain.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newAPIRig mounts the REST surface the way the router does, minus the
// cross-cutting middleware that is tested separately.
func newAPIRig(t *testing.T) (*gin.Engine, *services.AuthService, *services.MessageService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	authSvc := &services.AuthService{DB: db, JWTSecret: []byte("test-secret")}
	msgSvc := &services.MessageService{DB: db}

	authH := &AuthHandlers{Auth: authSvc}
	msgH := &MessageHandlers{Messages: msgSvc}
	requireAuth := middleware.RequireAuth(authSvc)

	r := gin.New()
	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/logout", requireAuth, authH.Logout)
		auth.GET("/me", requireAuth, authH.Me)
		auth.GET("/users", authH.ListUsers)

		messages := api.Group("/messages")
		messages.GET("/public", msgH.GetPublicMessages)
		messages.POST("/send", requireAuth, msgH.SendMessage)
		messages.GET("/private/:userId", requireAuth, msgH.GetPrivateMessages)
		messages.PUT("/:id", requireAuth, msgH.EditMessage)
		messages.DELETE("/:id", requireAuth, msgH.DeleteMessage)
	}
	return r, authSvc, msgSvc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

// registerUser provisions an account over the API and returns its token and id.
func registerUser(t *testing.T, r *gin.Engine, username string) (token, id string) {
	t.Helper()
	w, out := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, w.Code, w.Body.String())
	}
	user := out["user"].(map[string]any)
	return out["token"].(string), user["id"].(string)
}
