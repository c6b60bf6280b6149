package notifier

import (
	"context"
	"errors"
	"sync"
)

var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Recorder keeps every notification in memory. Recipients listed in Fail
// are rejected with ErrRecipientUnreachable.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	Fail map[int64]bool
}

func NewRecorder() *Recorder {
	return &Recorder{Fail: map[int64]bool{}}
}

func (r *Recorder) Notify(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[n.Recipient] {
		return ErrRecipientUnreachable
	}
	r.sent = append(r.sent, *n)
	return nil
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// To returns the notifications delivered to recipient.
func (r *Recorder) To(recipient int64) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
