package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Connection lifecycle states. A connection starts Connected when the
// transport opens, becomes Joined once a join event registers it in the
// presence registry, and ends Closed. Closed is terminal.
const (
	stateConnected = iota
	stateJoined
	stateClosed
)

// Transport timing, following the gorilla pump conventions: pings go out
// well inside the pong deadline.
const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	maxFrameBytes = 8 << 10
	sendQueueSize = 256
)

// Client is the session gateway for one WebSocket connection: it owns the
// connection lifecycle state machine, decodes inbound events, and invokes
// the presence registry and fan-out hub.
//
// Inbound events for a connection are processed one at a time in arrival
// order by the read pump. Outbound frames are queued on the send channel
// and drained by the write pump, so fan-out never blocks on this
// connection's socket.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger

	// closed is guarded by the hub mutex; set when the hub detaches the
	// client and its send channel is closed.
	closed bool

	mu       sync.Mutex
	state    int
	userID   string
	username string

	teardownOnce sync.Once
}

// NewClient wraps an accepted WebSocket connection in a session gateway and
// makes it addressable for fan-out. The connection starts in the Connected
// state; it joins the roster only after a join event.
func NewClient(hub *Hub, conn *websocket.Conn, log zerolog.Logger) *Client {
	c := &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendQueueSize),
		log:   log,
		state: stateConnected,
	}
	if conn != nil {
		conn.SetReadLimit(maxFrameBytes)
	}
	hub.attach(c)
	return c
}

// Run starts the write pump and blocks on the read pump until the
// connection closes. Cleanup is guaranteed: the read pump's exit path runs
// teardown, which unregisters the connection and rebroadcasts the roster.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// dispatch decodes one inbound frame and routes it to the matching handler.
// Malformed payloads are dropped with a logged warning; the connection is
// not closed for bad input.
func (c *Client) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn().Str("connection_id", c.id).Err(err).Msg("malformed frame; dropping")
		return
	}

	switch env.Type {
	case EventJoin:
		var p JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn().Str("connection_id", c.id).Err(err).Msg("malformed join payload")
			return
		}
		c.handleJoin(p)
	case EventSendBroadcast:
		var p BroadcastPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn().Str("connection_id", c.id).Err(err).Msg("malformed broadcast payload")
			return
		}
		c.handleSendBroadcast(p)
	case EventSendPrivate:
		var p PrivatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn().Str("connection_id", c.id).Err(err).Msg("malformed private payload")
			return
		}
		c.handleSendPrivate(p)
	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn().Str("connection_id", c.id).Err(err).Msg("malformed typing payload")
			return
		}
		c.handleTyping(p)
	default:
		c.log.Warn().Str("connection_id", c.id).Str("type", env.Type).Msg("unknown event type; dropping")
	}
}

// handleJoin registers the connection in the presence registry and
// announces it: full roster to everyone (originator included), a system
// notice to everyone else. The identity claims in the payload are used
// as-is; see the trust-boundary note in the package docs.
func (c *Client) handleJoin(p JoinPayload) {
	if p.UserID == "" || p.Username == "" {
		c.log.Warn().Str("connection_id", c.id).Msg("join missing identity fields; dropping")
		return
	}

	c.mu.Lock()
	if c.state != stateConnected {
		c.mu.Unlock()
		c.log.Warn().Str("connection_id", c.id).Msg("join on non-connected session; dropping")
		return
	}
	c.state = stateJoined
	c.userID = p.UserID
	c.username = p.Username
	c.mu.Unlock()

	c.hub.Registry.Register(ConnectionRecord{
		ConnectionID: c.id,
		UserID:       p.UserID,
		Username:     p.Username,
	})

	c.log.Info().
		Str("connection_id", c.id).
		Str("user_id", p.UserID).
		Str("username", p.Username).
		Msg("user joined")

	c.hub.broadcastRoster()
	c.hub.BroadcastExcept(EventSystemNotice,
		SystemNoticeEvent{Body: p.Username + " joined the chat"}, c.id)
}

// joined reports whether the session is in the Joined state.
func (c *Client) joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateJoined
}

// handleSendBroadcast stamps a public chat event with a server-assigned id
// and timestamp and fans it out to every connection, the originator
// included. Nothing is persisted on this path; the durable send path is
// the REST endpoint.
func (c *Client) handleSendBroadcast(p BroadcastPayload) {
	if !c.joined() {
		c.log.Warn().Str("connection_id", c.id).Msg("broadcast before join; dropping")
		return
	}
	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()

	c.hub.BroadcastAll(EventChatBroadcast, ChatBroadcastEvent{
		ID:        uuid.NewString(),
		Username:  p.Username,
		Body:      p.Body,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
	})
}

// handleSendPrivate delivers a direct message to every live connection of
// the target identity. An offline target means the event is silently
// dropped, matching best-effort delivery.
func (c *Client) handleSendPrivate(p PrivatePayload) {
	if !c.joined() {
		c.log.Warn().Str("connection_id", c.id).Msg("private send before join; dropping")
		return
	}
	c.hub.SendTargeted(EventChatPrivate, ChatPrivateEvent{
		ID:           uuid.NewString(),
		FromUsername: p.FromUsername,
		Body:         p.Body,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	}, p.TargetUserID)
}

// handleTyping relays a typing-state change to everyone but the typist.
// No persistence, no rate limiting.
func (c *Client) handleTyping(p TypingPayload) {
	if !c.joined() {
		return
	}
	c.hub.BroadcastExcept(EventTypingNotice,
		TypingNoticeEvent{Username: p.Username, IsTyping: p.IsTyping}, c.id)
}

// teardown runs the mandatory cleanup path exactly once, from graceful
// close, transport error, and hub shutdown alike. If the session was
// Joined it unregisters the connection, rebroadcasts the shrunken roster,
// and announces the departure to the remaining connections.
func (c *Client) teardown() {
	c.teardownOnce.Do(func() {
		c.mu.Lock()
		wasJoined := c.state == stateJoined
		username := c.username
		c.state = stateClosed
		c.mu.Unlock()

		c.hub.detach(c.id)

		if wasJoined {
			if _, ok := c.hub.Registry.Unregister(c.id); ok {
				c.log.Info().
					Str("connection_id", c.id).
					Str("username", username).
					Msg("user left")
				c.hub.broadcastRoster()
				c.hub.BroadcastExcept(EventSystemNotice,
					SystemNoticeEvent{Body: username + " left the chat"}, c.id)
			}
		}

		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump reads frames until the transport closes or errors, dispatching
// each one in arrival order. Its exit path is the cleanup contract: the
// deferred teardown always runs.
func (c *Client) readPump() {
	defer c.teardown()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn().Str("connection_id", c.id).Err(err).Msg("unexpected close")
			}
			return
		}
		c.dispatch(raw)
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings. A closed queue (hub detach) sends a close
// frame and returns.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
