// Package notify holds the process-wide queue of ephemeral status messages.
//
// Non-pending notifications expire on their own after a fixed delay. Pending
// ones persist until explicitly resolved: the transaction layer creates one
// pending notification per action and transitions it in place to success or
// error, so the UI never sees a second, ghost entry for the same action.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindPending Kind = "pending"
)

// DefaultTTL is how long a non-pending notification stays visible.
const DefaultTTL = 5 * time.Second

// Notification is one queued status message, optionally bound to an
// in-flight transaction by hash.
type Notification struct {
	ID        string
	Kind      Kind
	Message   string
	TxHash    string
	CreatedAt time.Time
}

// Patch describes a partial in-place update. Zero-valued fields keep the
// current value.
type Patch struct {
	Kind    Kind
	Message string
	TxHash  string
}

// Queue is a time-ordered notification queue safe for concurrent use.
// Expiry timers are keyed by notification id and cancelled on early removal.
type Queue struct {
	mu     sync.Mutex
	items  []*Notification
	timers map[string]*time.Timer
	ttl    time.Duration
	gauge  Gauge
}

// Gauge receives the queue length after every change. Satisfied by
// prometheus.Gauge; nil is fine.
type Gauge interface {
	Set(float64)
}

// Option configures a Queue.
type Option func(*Queue)

// WithTTL overrides the self-expiry delay.
func WithTTL(d time.Duration) Option {
	return func(q *Queue) {
		q.ttl = d
	}
}

// WithGauge reports queue length to g.
func WithGauge(g Gauge) Option {
	return func(q *Queue) {
		q.gauge = g
	}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		timers: make(map[string]*time.Timer),
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends a notification and returns its id. Non-pending kinds start
// their expiry countdown immediately.
func (q *Queue) Push(kind Kind, message string) string {
	return q.PushTx(kind, message, "")
}

// PushTx is Push with a transaction hash attached.
func (q *Queue) PushTx(kind Kind, message, txHash string) string {
	n := &Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		TxHash:    txHash,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	if kind != KindPending {
		q.armLocked(n.ID)
	}
	q.reportLocked()
	q.mu.Unlock()

	return n.ID
}

// Update applies a partial update in place. If the notification leaves (or
// re-enters a non-pending) kind, the expiry countdown restarts at the moment
// of the update, not at creation. Returns false if the id is gone.
func (q *Queue) Update(id string, p Patch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.findLocked(id)
	if n == nil {
		return false
	}
	if p.Kind != "" {
		n.Kind = p.Kind
	}
	if p.Message != "" {
		n.Message = p.Message
	}
	if p.TxHash != "" {
		n.TxHash = p.TxHash
	}
	if p.Kind != "" && p.Kind != KindPending {
		q.armLocked(id)
	}
	return true
}

// Remove deletes a notification and cancels its expiry timer.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

// Items returns the queued notifications in creation order.
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.items))
	for i, n := range q.items {
		out[i] = *n
	}
	return out
}

// Get returns a copy of one notification.
func (q *Queue) Get(id string) (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.findLocked(id)
	if n == nil {
		return Notification{}, false
	}
	return *n, true
}

func (q *Queue) findLocked(id string) *Notification {
	for _, n := range q.items {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// armLocked starts or restarts the expiry timer for id.
func (q *Queue) armLocked(id string) {
	if t, ok := q.timers[id]; ok {
		t.Stop()
	}
	q.timers[id] = time.AfterFunc(q.ttl, func() {
		q.mu.Lock()
		q.removeLocked(id)
		q.mu.Unlock()
	})
}

func (q *Queue) removeLocked(id string) bool {
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.reportLocked()
			return true
		}
	}
	return false
}

func (q *Queue) reportLocked() {
	if q.gauge != nil {
		q.gauge.Set(float64(len(q.items)))
	}
}
