package permission

import (
	"context"
	"sync"
	"time"
)

// Request is a single prompt for a permission. Its result is delivered
// exactly once.
type Request struct {
	ID          string
	Permission  Name
	RequestedAt time.Time
	Deadline    time.Time

	once     sync.Once
	done     chan struct{}
	mu       sync.Mutex
	decision Decision
	reason   string
	timer    *time.Timer
}

// RequestView is the JSON form of a Request.
type RequestView struct {
	ID          string    `json:"id"`
	Permission  Name      `json:"permission"`
	RequestedAt time.Time `json:"requested_at"`
	Deadline    time.Time `json:"deadline"`
	Decision    Decision  `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// Done is closed once the request is resolved.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Decision returns the outcome and whether the request has resolved.
func (r *Request) Decision() (Decision, bool) {
	select {
	case <-r.done:
	default:
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decision, true
}

// Wait blocks until the request resolves or ctx ends.
func (r *Request) Wait(ctx context.Context) (Decision, error) {
	select {
	case <-r.done:
		d, _ := r.Decision()
		return d, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// View returns a snapshot for serialization.
func (r *Request) View() RequestView {
	v := RequestView{
		ID:          r.ID,
		Permission:  r.Permission,
		RequestedAt: r.RequestedAt,
		Deadline:    r.Deadline,
	}
	if d, ok := r.Decision(); ok {
		r.mu.Lock()
		v.Decision = d
		v.Reason = r.reason
		r.mu.Unlock()
	}
	return v
}

// settle records d and reports whether this call was the one that resolved
// the request.
func (r *Request) settle(d Decision, reason string) bool {
	won := false
	r.once.Do(func() {
		r.mu.Lock()
		r.decision = d
		r.reason = reason
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
		close(r.done)
		won = true
	})
	return won
}
