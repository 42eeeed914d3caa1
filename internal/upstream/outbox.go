package upstream

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

var errOutboxClosed = errors.New("outbox closed")

// frame is one entry in the outbound queue. Protocol pings travel through the
// same FIFO as text replies so delivery order matches enqueue order.
type frame struct {
	kind int // websocket message type: TextMessage or PingMessage
	data []byte
}

// outbox is the unbounded FIFO the write pump drains. There is exactly one
// consumer per connection episode; producers are the dispatch path and the
// heartbeat.
type outbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	wake   chan struct{}
	closed bool
}

func newOutbox() *outbox {
	return &outbox{
		q:    queue.New(),
		wake: make(chan struct{}, 1),
	}
}

// push enqueues a frame. It fails only once the outbox is closed, which the
// heartbeat treats as the peer being gone.
func (o *outbox) push(f frame) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errOutboxClosed
	}
	o.q.Add(f)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// pop dequeues the next frame, blocking until one is available, the outbox is
// closed and drained, or done fires.
func (o *outbox) pop(done <-chan struct{}) (frame, bool) {
	for {
		o.mu.Lock()
		if o.q.Length() > 0 {
			f := o.q.Remove().(frame)
			o.mu.Unlock()
			return f, true
		}
		closed := o.closed
		o.mu.Unlock()

		if closed {
			return frame{}, false
		}

		select {
		case <-o.wake:
		case <-done:
			return frame{}, false
		}
	}
}

// close stops further pushes and wakes a blocked consumer.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}
