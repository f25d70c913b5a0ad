package signaling

import "sync"

// outbox is the byte-bounded FIFO of encoded frames waiting to be written to
// one WebSocket. Push never blocks so a slow peer cannot stall the relay that
// is broadcasting to it.
type outbox struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	closed   bool

	maxBytes int
	curBytes int
	frames   [][]byte
}

func newOutbox(maxBytes int) *outbox {
	o := &outbox{maxBytes: maxBytes}
	o.notEmpty = sync.NewCond(&o.mu)
	return o
}

// Push appends frame if it fits in the remaining byte budget.
func (o *outbox) Push(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrConnectionClosed
	}
	if o.curBytes+len(frame) > o.maxBytes {
		return ErrSendQueueFull
	}
	o.frames = append(o.frames, frame)
	o.curBytes += len(frame)
	o.notEmpty.Signal()
	return nil
}

// Pop blocks until a frame is available. After Close it keeps returning
// queued frames and reports false once the queue is drained.
func (o *outbox) Pop() ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.frames) == 0 && !o.closed {
		o.notEmpty.Wait()
	}
	if len(o.frames) == 0 {
		return nil, false
	}
	frame := o.frames[0]
	o.frames[0] = nil
	o.frames = o.frames[1:]
	o.curBytes -= len(frame)
	return frame, true
}

// Close rejects further pushes and wakes the writer.
func (o *outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.notEmpty.Broadcast()
}

// Discard drops every queued frame.
func (o *outbox) Discard() {
	o.mu.Lock()
	o.frames = nil
	o.curBytes = 0
	o.mu.Unlock()
}

func (o *outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.frames)
}
