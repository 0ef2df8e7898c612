// Package chat implements the real-time core: the presence registry, the
// fan-out hub, and the per-connection session gateway speaking the
// WebSocket event protocol.
//
// Wire format: every frame is a JSON envelope {"type": "...", "data": {...}}.
// Inbound frames that fail to decode are logged and dropped; the connection
// stays open.
package chat

import "encoding/json"

// Inbound event types.
const (
	EventJoin          = "join"
	EventSendBroadcast = "send_broadcast"
	EventSendPrivate   = "send_private"
	EventTyping        = "typing"
)

// Outbound event types.
const (
	EventRosterUpdate  = "roster_update"
	EventChatBroadcast = "chat_broadcast"
	EventChatPrivate   = "chat_private"
	EventSystemNotice  = "system_notice"
	EventTypingNotice  = "typing_notice"
)

// Envelope is the frame wrapper for both directions. Data stays raw on the
// inbound path so each handler decodes only its own payload shape.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinPayload carries the identity claims presented on join. They are used
// as-is; validating a credential on the transport handshake is the outer
// layer's concern.
type JoinPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// BroadcastPayload is an inbound public chat message.
type BroadcastPayload struct {
	Username string `json:"username"`
	Body     string `json:"body"`
}

// PrivatePayload is an inbound direct message aimed at one identity.
type PrivatePayload struct {
	TargetUserID string `json:"targetUserId"`
	FromUsername string `json:"fromUsername"`
	Body         string `json:"body"`
}

// TypingPayload is an inbound typing-state change.
type TypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// RosterEntry is one element of a roster_update snapshot.
type RosterEntry struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// ChatBroadcastEvent is the outbound public chat message, stamped with a
// server-assigned id and timestamp.
type ChatBroadcastEvent struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId"`
}

// ChatPrivateEvent is the outbound direct message, delivered only to the
// target identity's live connections.
type ChatPrivateEvent struct {
	ID           string `json:"id"`
	FromUsername string `json:"fromUsername"`
	Body         string `json:"body"`
	Timestamp    string `json:"timestamp"`
}

// SystemNoticeEvent announces joins and leaves to everyone but the subject.
type SystemNoticeEvent struct {
	Body string `json:"body"`
}

// TypingNoticeEvent relays typing state to everyone but the typist.
type TypingNoticeEvent struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// marshalFrame builds an outbound envelope. Payload shapes are owned by
// this package, so encoding failures are programming errors; the caller
// treats a nil result as "nothing to deliver".
func marshalFrame(eventType string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	frame, err := json.Marshal(Envelope{Type: eventType, Data: raw})
	if err != nil {
		return nil
	}
	return frame
}
