// WebSocket entry point.
//
// This file upgrades HTTP requests on /ws to WebSocket connections and
// hands them to the chat session gateway. The upgrader enforces the CORS
// origin allowlist when one is configured; otherwise any origin may
// connect (development posture, matching the REST CORS default).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-chatroom-backend/internal/chat"
	"github.com/tbourn/go-chatroom-backend/internal/http/middleware"
)

// WSHandler upgrades connections and runs their session gateways.
type WSHandler struct {
	Hub            *chat.Hub
	AllowedOrigins []string
}

// upgrader builds a gorilla upgrader bound to this handler's origin policy.
func (h *WSHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(h.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// Serve upgrades the request and blocks until the connection closes. The
// session gateway guarantees presence cleanup on every exit path.
func (h *WSHandler) Serve(c *gin.Context) {
	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := chat.NewClient(h.Hub, conn, *middleware.LoggerFrom(c))
	client.Run()
}
