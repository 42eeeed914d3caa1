package upstream

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestOutboxFIFO(t *testing.T) {
	o := newOutbox()
	done := make(chan struct{})

	for _, payload := range []string{"a", "b", "c"} {
		if err := o.push(frame{kind: websocket.TextMessage, data: []byte(payload)}); err != nil {
			t.Fatalf("push(%s): %v", payload, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		f, ok := o.pop(done)
		if !ok {
			t.Fatalf("pop returned !ok, want frame %q", want)
		}
		if string(f.data) != want {
			t.Errorf("pop = %q, want %q", f.data, want)
		}
	}
}

func TestOutboxPopBlocksUntilPush(t *testing.T) {
	o := newOutbox()
	done := make(chan struct{})

	got := make(chan frame, 1)
	go func() {
		f, ok := o.pop(done)
		if ok {
			got <- f
		}
	}()

	// Give the consumer a moment to block on an empty queue.
	time.Sleep(10 * time.Millisecond)
	if err := o.push(frame{kind: websocket.TextMessage, data: []byte("late")}); err != nil {
		t.Fatalf("push: %v", err)
	}

	select {
	case f := <-got:
		if string(f.data) != "late" {
			t.Errorf("pop = %q, want %q", f.data, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake after push")
	}
}

func TestOutboxPopUnblocksOnDone(t *testing.T) {
	o := newOutbox()
	done := make(chan struct{})

	result := make(chan bool, 1)
	go func() {
		_, ok := o.pop(done)
		result <- ok
	}()

	close(done)

	select {
	case ok := <-result:
		if ok {
			t.Error("pop = ok after done closed, want !ok")
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not unblock when done fired")
	}
}

func TestOutboxClose(t *testing.T) {
	o := newOutbox()
	done := make(chan struct{})

	o.push(frame{kind: websocket.TextMessage, data: []byte("queued")})
	o.close()

	if err := o.push(frame{kind: websocket.TextMessage, data: []byte("rejected")}); err == nil {
		t.Error("push after close succeeded, want error")
	}

	// Already-queued frames drain before the closed state surfaces.
	f, ok := o.pop(done)
	if !ok || string(f.data) != "queued" {
		t.Errorf("pop = (%q, %v), want (queued, true)", f.data, ok)
	}
	if _, ok := o.pop(done); ok {
		t.Error("pop on drained closed outbox = ok, want !ok")
	}
}
