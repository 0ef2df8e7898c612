package chat

import (
	"sync"

	"github.com/rs/zerolog"
)

// ConnectionRecord ties one live transport connection to an identity. The
// username is a snapshot taken at registration; it is never re-joined
// against the user store.
type ConnectionRecord struct {
	ConnectionID string
	UserID       string
	Username     string
}

// Registry is the single in-memory authority for "who is online right
// now". It maps connection ids to records and preserves insertion order
// for roster snapshots. An identity may hold any number of simultaneous
// connections (multi-device); it counts as online while at least one
// record references it.
//
// All methods are safe for concurrent use. The mutex guards only the data
// structures; it is never held across socket I/O.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*ConnectionRecord
	order []string
	log   zerolog.Logger
}

// NewRegistry returns an empty registry. The registry has no persistence;
// it is rebuilt entirely by session gateway activity.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]*ConnectionRecord),
		log:   log,
	}
}

// Register inserts a record for a new connection. A duplicate connection id
// cannot happen under correct transport semantics; if it does, the
// violation is logged and the stale record is overwritten in place,
// keeping its original roster position.
func (r *Registry) Register(rec ConnectionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[rec.ConnectionID]; exists {
		r.log.Error().
			Str("connection_id", rec.ConnectionID).
			Str("user_id", rec.UserID).
			Msg("duplicate connection registration; overwriting")
		r.conns[rec.ConnectionID] = &rec
		return
	}
	r.conns[rec.ConnectionID] = &rec
	r.order = append(r.order, rec.ConnectionID)
}

// Unregister removes and returns the record for connectionID. It is
// idempotent: a second call for the same id returns (nil, false).
func (r *Registry) Unregister(connectionID string) (*ConnectionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connectionID]
	if !ok {
		return nil, false
	}
	delete(r.conns, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return rec, true
}

// Snapshot returns all live records in insertion order. The result is a
// copy; callers may fan out from it without holding any lock.
func (r *Registry) Snapshot() []ConnectionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ConnectionRecord, 0, len(r.conns))
	for _, id := range r.order {
		if rec, ok := r.conns[id]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// FindByUser returns the records of every live connection held by userID,
// in insertion order. The slice is empty when the identity is offline.
func (r *Registry) FindByUser(userID string) []ConnectionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ConnectionRecord
	for _, id := range r.order {
		if rec, ok := r.conns[id]; ok && rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
