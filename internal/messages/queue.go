// internal/messages/queue.go
package messages

import "sync"

// Queue is the ordered list of messages the user has staged for the next run.
// It is safe for concurrent use; runs take a Snapshot and never see later edits.
type Queue struct {
	mu    sync.RWMutex
	items []string
}

// NewQueue creates a queue seeded with msgs.
func NewQueue(msgs ...string) *Queue {
	q := &Queue{}
	q.AddMany(msgs)
	return q
}

// Add appends one message. Empty messages are ignored and reported as not added.
func (q *Queue) Add(msg string) bool {
	if msg == "" {
		return false
	}
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	return true
}

// AddMany appends every non-empty message and returns how many were added.
func (q *Queue) AddMany(msgs []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, m := range msgs {
		if m == "" {
			continue
		}
		q.items = append(q.items, m)
		n++
	}
	return n
}

// Replace swaps the whole contents for msgs.
func (q *Queue) Replace(msgs []string) int {
	q.Clear()
	return q.AddMany(msgs)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Snapshot returns a copy of the queued messages in order.
func (q *Queue) Snapshot() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]string(nil), q.items...)
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}
