package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegisterDestroyLifecycle(t *testing.T) {
	r := NewRegistry(nil, nil)

	if r.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", r.Count())
	}

	r.Register("s1", "r1")
	if r.Count() != 1 {
		t.Errorf("Count() after register = %d, want 1", r.Count())
	}

	if !r.Destroy("s1") {
		t.Error("Destroy(s1) = false, want true")
	}
	if r.Count() != 0 {
		t.Errorf("Count() after destroy = %d, want 0", r.Count())
	}
}

func TestDestroyMissingSession(t *testing.T) {
	r := NewRegistry(nil, nil)

	if r.Destroy("never-registered") {
		t.Error("Destroy of unknown session = true, want false")
	}

	r.Register("s1", "r1")
	r.Destroy("s1")
	if r.Destroy("s1") {
		t.Error("double Destroy = true, want false")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry(nil, nil)

	r.Register("s1", "r1")
	r.Register("s1", "r2")

	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	sessions := r.Sessions()
	if len(sessions) != 1 || sessions[0].RoomID != "r2" {
		t.Errorf("Sessions() = %+v, want single session in room r2", sessions)
	}
}

func TestSessionsSnapshot(t *testing.T) {
	r := NewRegistry(nil, nil)

	r.Register("s1", "r1")
	r.Register("s2", "r1")

	sessions := r.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("len(Sessions()) = %d, want 2", len(sessions))
	}
	for _, s := range sessions {
		if s.CreatedAt.IsZero() {
			t.Errorf("session %s has zero CreatedAt", s.ID)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", n)
			r.Register(id, "r1")
			r.Count()
			r.Sessions()
			r.Destroy(id)
		}(i)
	}
	wg.Wait()

	if r.Count() != 0 {
		t.Errorf("Count() after concurrent lifecycle = %d, want 0", r.Count())
	}
}
