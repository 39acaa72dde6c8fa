package mqtt

import "log"

// ringBuffer holds state reports made while disconnected.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	buf      []Message
	head     int // next write position
	count    int
	overflow bool // a message was dropped since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]Message, capacity)}
}

// push appends msg, overwriting the oldest entry when full.
func (r *ringBuffer) push(msg Message) {
	n := len(r.buf)
	if r.count == n {
		if !r.overflow {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", n)
			r.overflow = true
		}
	} else {
		r.count++
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % n
}

// drain returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drain() []Message {
	if r.count == 0 {
		return nil
	}
	n := len(r.buf)
	out := make([]Message, r.count)
	start := (r.head - r.count + n) % n
	for i := range out {
		out[i] = r.buf[(start+i)%n]
	}
	r.head, r.count, r.overflow = 0, 0, false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
