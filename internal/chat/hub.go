package chat

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	// wsConnections gauges the number of live WebSocket connections.
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Current number of live WebSocket connections.",
	})

	// wsEventsDelivered counts outbound events that reached a client's
	// send queue, by event type.
	wsEventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_delivered_total",
			Help: "Total outbound events queued for delivery.",
		},
		[]string{"event"},
	)

	// wsEventsDropped counts outbound events lost to a slow or closed
	// connection, by event type.
	wsEventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_dropped_total",
			Help: "Total outbound events dropped due to slow or closed connections.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsEventsDelivered, wsEventsDropped)
}

// Hub routes outbound events to the correct set of live connections. It
// owns the set of connected clients and consults the presence Registry for
// identity-targeted delivery.
//
// Delivery is best-effort: each fan-out issues one independent attempt per
// connection, and a failure (slow consumer, closed transport) evicts only
// that connection. No lock is held across a socket write; the send itself
// is a non-blocking push onto the client's buffered queue, drained by its
// write pump.
type Hub struct {
	Registry *Registry

	mu      sync.Mutex
	clients map[string]*Client
	log     zerolog.Logger
}

// NewHub creates a hub bound to the given presence registry.
func NewHub(registry *Registry, log zerolog.Logger) *Hub {
	return &Hub{
		Registry: registry,
		clients:  make(map[string]*Client),
		log:      log,
	}
}

// attach makes a connected client addressable for fan-out. Called by the
// session gateway when the transport opens, before any join.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	wsConnections.Set(float64(n))
	h.log.Debug().Str("connection_id", c.id).Int("connections", n).Msg("client attached")
}

// detach removes a client from the fan-out set and closes its send queue.
// Idempotent; the queue is closed at most once.
func (h *Hub) detach(connectionID string) {
	h.mu.Lock()
	c, ok := h.clients[connectionID]
	if ok {
		delete(h.clients, connectionID)
		c.closed = true
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		wsConnections.Set(float64(n))
		h.log.Debug().Str("connection_id", connectionID).Int("connections", n).Msg("client detached")
	}
}

// snapshotClients returns the current fan-out targets without holding the
// lock during delivery.
func (h *Hub) snapshotClients() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// deliver pushes a frame onto one client's queue. A full queue or closed
// client counts as a failed delivery; the client is evicted so the write
// pump can wind down, and the failure never propagates to the caller.
func (h *Hub) deliver(c *Client, event string, frame []byte) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		wsEventsDropped.WithLabelValues(event).Inc()
		return
	}
	select {
	case c.send <- frame:
		h.mu.Unlock()
		wsEventsDelivered.WithLabelValues(event).Inc()
	default:
		h.mu.Unlock()
		wsEventsDropped.WithLabelValues(event).Inc()
		h.log.Warn().
			Str("connection_id", c.id).
			Str("event", event).
			Msg("send queue full; evicting client")
		h.detach(c.id)
	}
}

// BroadcastAll delivers an event to every live connection, including the
// originator. Originator re-render is the client application's concern.
func (h *Hub) BroadcastAll(event string, data any) {
	frame := marshalFrame(event, data)
	if frame == nil {
		return
	}
	for _, c := range h.snapshotClients() {
		h.deliver(c, event, frame)
	}
}

// BroadcastExcept delivers an event to every live connection except
// excludedID. Used for join/leave/typing notices, where the originator
// already has local knowledge.
func (h *Hub) BroadcastExcept(event string, data any, excludedID string) {
	frame := marshalFrame(event, data)
	if frame == nil {
		return
	}
	for _, c := range h.snapshotClients() {
		if c.id == excludedID {
			continue
		}
		h.deliver(c, event, frame)
	}
}

// SendTargeted delivers an event to every live connection of one identity.
// When the identity is offline the event is silently dropped: no error, no
// queueing.
func (h *Hub) SendTargeted(event string, data any, userID string) {
	records := h.Registry.FindByUser(userID)
	if len(records) == 0 {
		return
	}
	frame := marshalFrame(event, data)
	if frame == nil {
		return
	}
	h.mu.Lock()
	targets := make([]*Client, 0, len(records))
	for _, rec := range records {
		if c, ok := h.clients[rec.ConnectionID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	for _, c := range targets {
		h.deliver(c, event, frame)
	}
}

// broadcastRoster sends the full presence snapshot to every connection.
// Called on every join and leave.
func (h *Hub) broadcastRoster() {
	snapshot := h.Registry.Snapshot()
	roster := make([]RosterEntry, 0, len(snapshot))
	for _, rec := range snapshot {
		roster = append(roster, RosterEntry{
			UserID:       rec.UserID,
			Username:     rec.Username,
			ConnectionID: rec.ConnectionID,
		})
	}
	h.BroadcastAll(EventRosterUpdate, roster)
}

// Close tears down every live connection, waiting up to timeout for the
// underlying transports to finish closing.
func (h *Hub) Close(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for _, c := range h.snapshotClients() {
		c.teardown()
	}
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.clients)
		h.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	h.log.Warn().Msg("hub close timeout; some connections may linger")
}
