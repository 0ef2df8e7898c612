package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.Nop())
}

func TestRegistry_RegisterAndSnapshot(t *testing.T) {
	r := newTestRegistry()

	r.Register(ConnectionRecord{ConnectionID: "c1", UserID: "u1", Username: "alice"})
	r.Register(ConnectionRecord{ConnectionID: "c2", UserID: "u2", Username: "bob"})
	r.Register(ConnectionRecord{ConnectionID: "c3", UserID: "u1", Username: "alice"})

	if got := r.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot size = %d, want 3", len(snap))
	}
	// insertion order must survive
	if snap[0].ConnectionID != "c1" || snap[1].ConnectionID != "c2" || snap[2].ConnectionID != "c3" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := newTestRegistry()
	r.Register(ConnectionRecord{ConnectionID: "c1", UserID: "u1", Username: "alice"})

	snap := r.Snapshot()
	snap[0].Username = "mallory"

	again := r.Snapshot()
	if again[0].Username != "alice" {
		t.Fatalf("snapshot mutation leaked into registry: %+v", again)
	}
}

func TestRegistry_DuplicateRegisterOverwrites(t *testing.T) {
	r := newTestRegistry()

	r.Register(ConnectionRecord{ConnectionID: "c1", UserID: "u1", Username: "alice"})
	r.Register(ConnectionRecord{ConnectionID: "c2", UserID: "u2", Username: "bob"})
	// same connection id again with new identity; record is replaced, size
	// does not grow, position in the roster is kept
	r.Register(ConnectionRecord{ConnectionID: "c1", UserID: "u9", Username: "eve"})

	if got := r.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	snap := r.Snapshot()
	if snap[0].ConnectionID != "c1" || snap[0].UserID != "u9" || snap[0].Username != "eve" {
		t.Fatalf("overwrite not applied in place: %+v", snap)
	}
	if snap[1].ConnectionID != "c2" {
		t.Fatalf("unexpected second entry: %+v", snap[1])
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := newTestRegistry()
	r.Register(ConnectionRecord{ConnectionID: "c1", UserID: "u1", Username: "alice"})
	r.Register(ConnectionRecord{ConnectionID: "c2", UserID: "u2", Username: "bob"})

	rec, ok := r.Unregister("c1")
	if !ok || rec == nil {
		t.Fatalf("expected removal of c1, got ok=%v rec=%v", ok, rec)
	}
	if rec.UserID != "u1" || rec.Username != "alice" {
		t.Fatalf("unexpected removed record: %+v", rec)
	}
	if got := r.Len(); got != 1 {
		t.Fatalf("Len after unregister = %d, want 1", got)
	}

	// idempotent: removing an absent id is a no-op
	if rec, ok := r.Unregister("c1"); ok || rec != nil {
		t.Fatalf("second unregister should be a no-op, got ok=%v rec=%v", ok, rec)
	}
	if got := r.Len(); got != 1 {
		t.Fatalf("Len after double unregister = %d, want 1", got)
	}
}

func TestRegistry_FindByUser(t *testing.T) {
	r := newTestRegistry()
	r.Register(ConnectionRecord{ConnectionID: "c1", UserID: "u1", Username: "alice"})
	r.Register(ConnectionRecord{ConnectionID: "c2", UserID: "u2", Username: "bob"})
	r.Register(ConnectionRecord{ConnectionID: "c3", UserID: "u1", Username: "alice"})

	got := r.FindByUser("u1")
	if len(got) != 2 {
		t.Fatalf("FindByUser(u1) = %d records, want 2", len(got))
	}
	if got[0].ConnectionID != "c1" || got[1].ConnectionID != "c3" {
		t.Fatalf("unexpected order: %+v", got)
	}

	if got := r.FindByUser("nope"); len(got) != 0 {
		t.Fatalf("FindByUser(nope) = %+v, want empty", got)
	}
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Register(ConnectionRecord{ConnectionID: id, UserID: "u", Username: "x"})
			_ = r.Snapshot()
			if i%2 == 0 {
				r.Unregister(id)
			}
		}(i)
	}
	wg.Wait()

	if got := r.Len(); got != 25 {
		t.Fatalf("Len after churn = %d, want 25", got)
	}
}
