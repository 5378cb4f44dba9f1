// Package testutil provides shared test doubles for service tests.
package testutil

import (
	"context"
	"sync"

	"github.com/pawmate/pawmate/internal/app/domain/notification"
	apperrors "github.com/pawmate/pawmate/internal/errors"
)

// Notifier records notifications instead of storing them.
type Notifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

// Notify appends n to the recording.
func (r *Notifier) Notify(_ context.Context, n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// Sent returns a copy of everything recorded so far, oldest first.
func (r *Notifier) Sent() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent notification, or the zero value.
func (r *Notifier) Last() notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return notification.Notification{}
	}
	return r.sent[len(r.sent)-1]
}

// For returns the notifications addressed to userID.
func (r *Notifier) For(userID string) []notification.Notification {
	var out []notification.Notification
	for _, n := range r.Sent() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Reset forgets everything recorded.
func (r *Notifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// Participants maps a booking ID to its owner and sitter user IDs.
type Participants map[string][2]string

func (p Participants) Participants(_ context.Context, id string) (string, string, error) {
	pair, ok := p[id]
	if !ok {
		return "", "", apperrors.NotFound("booking", id)
	}
	return pair[0], pair[1], nil
}
