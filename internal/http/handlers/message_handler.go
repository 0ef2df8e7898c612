// Message HTTP handlers.
//
// This file exposes REST endpoints for the durable message log:
//   - GET    /api/messages/public           (paginated public timeline)
//   - POST   /api/messages/send             (persist a message; requires bearer)
//   - GET    /api/messages/private/{userId} (paginated private thread; requires bearer)
//   - PUT    /api/messages/{id}             (edit own message; requires bearer)
//   - DELETE /api/messages/{id}             (soft-delete own message; requires bearer)
//
// Pages are served oldest-first with a hasMore flag. This REST path is the
// only one that persists messages; the WebSocket broadcast path is
// ephemeral by design.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chatroom-backend/internal/http/middleware"
	"github.com/tbourn/go-chatroom-backend/internal/services"
	"github.com/tbourn/go-chatroom-backend/internal/utils"
)

// SendMessageRequest is the JSON payload for persisting a message.
type SendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	IsPrivate   bool   `json:"isPrivate"`
	RecipientID string `json:"recipientId"`
}

// EditMessageRequest is the JSON payload for editing message content.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// MessageHandlers groups the message-log endpoints around one
// MessageService.
type MessageHandlers struct {
	Messages *services.MessageService
}

// pageParams reads limit/page query parameters with the log's defaults.
func pageParams(c *gin.Context) (page, limit int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	limit = utils.AtoiDefault(c.Query("limit"), 50)
	return page, limit
}

// GetPublicMessages returns one page of the public timeline, oldest-first.
func (h *MessageHandlers) GetPublicMessages(c *gin.Context) {
	page, limit := pageParams(c)

	msgs, hasMore, err := h.Messages.ListPublicPage(c.Request.Context(), page, limit)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"success":  true,
		"messages": msgs,
		"pagination": gin.H{
			"page":    page,
			"limit":   limit,
			"hasMore": hasMore,
		},
	})
}

// SendMessage persists a new message from the authenticated user.
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Message content is required")
		return
	}

	sender := middleware.CurrentUser(c)
	msg, err := h.Messages.Send(c.Request.Context(), sender, req.Content, req.MessageType, req.IsPrivate, req.RecipientID)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusCreated, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"data":    msg,
	})
}

// GetPrivateMessages returns one page of the thread between the
// authenticated user and the path user, oldest-first, either direction.
func (h *MessageHandlers) GetPrivateMessages(c *gin.Context) {
	page, limit := pageParams(c)
	me := middleware.CurrentUser(c)
	otherID := c.Param("userId")

	msgs, other, hasMore, err := h.Messages.ListPrivatePage(c.Request.Context(), me.ID, otherID, page, limit)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"success":  true,
		"messages": msgs,
		"recipient": gin.H{
			"id":       other.ID,
			"username": other.Username,
			"avatar":   other.Avatar,
			"isOnline": other.IsOnline,
		},
		"pagination": gin.H{
			"page":    page,
			"limit":   limit,
			"hasMore": hasMore,
		},
	})
}

// EditMessage updates the content of a message the authenticated user
// sent. Foreign and missing messages are indistinguishable (404).
func (h *MessageHandlers) EditMessage(c *gin.Context) {
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Message content is required")
		return
	}

	me := middleware.CurrentUser(c)
	msg, err := h.Messages.Edit(c.Request.Context(), me.ID, c.Param("id"), req.Content)
	if err != nil {
		failFromService(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Message updated successfully",
		"data":    msg,
	})
}

// DeleteMessage soft-deletes a message the authenticated user sent.
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	me := middleware.CurrentUser(c)
	if err := h.Messages.Delete(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Message deleted successfully",
	})
}
