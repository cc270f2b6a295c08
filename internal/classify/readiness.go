package classify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the readiness of the primary classifier.
type State int

const (
	StateNotReady State = iota
	StateWaiting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotReady:
		return "not_ready"
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Readiness tracks NotReady, Waiting(deadline), Ready and Failed. Waiters
// block on a channel that is closed on the transition to Ready.
type Readiness struct {
	mu       sync.Mutex
	ready    bool
	failed   error
	waiters  int
	deadline time.Time
	readyCh  chan struct{}
	subs     []chan struct{}
	now      func() time.Time
}

// NewReadiness returns a tracker in the NotReady state.
func NewReadiness() *Readiness {
	return &Readiness{readyCh: make(chan struct{}), now: time.Now}
}

// State returns the current state. Waiting is reported while at least one
// caller is blocked in Await; Deadline gives the latest wait deadline.
func (r *Readiness) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Readiness) stateLocked() State {
	switch {
	case r.ready:
		return StateReady
	case r.failed != nil:
		return StateFailed
	case r.waiters > 0:
		return StateWaiting
	default:
		return StateNotReady
	}
}

// Deadline returns the wait deadline while in Waiting.
func (r *Readiness) Deadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stateLocked() != StateWaiting {
		return time.Time{}, false
	}
	return r.deadline, true
}

// Err returns the cause of a Failed state.
func (r *Readiness) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Ready reports whether the state is Ready.
func (r *Readiness) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// MarkReady moves to Ready, releasing waiters and notifying subscribers.
// Repeated calls while already ready do nothing.
func (r *Readiness) MarkReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return
	}
	r.ready = true
	r.failed = nil
	close(r.readyCh)
	for _, sub := range r.subs {
		select {
		case sub <- struct{}{}:
		default:
		}
	}
}

// MarkNotReady leaves Ready (or Failed) for NotReady.
func (r *Readiness) MarkNotReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = nil
	if r.ready {
		r.ready = false
		r.readyCh = make(chan struct{})
	}
}

// MarkFailed records a permanent failure. Await returns false immediately
// until MarkReady or MarkNotReady clears it.
func (r *Readiness) MarkFailed(err error) {
	if err == nil {
		err = fmt.Errorf("classifier failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		r.ready = false
		r.readyCh = make(chan struct{})
	}
	r.failed = err
}

// Subscribe returns a channel that receives one value per transition to
// Ready. Slow consumers miss coalesced transitions, never block the sender.
func (r *Readiness) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

// Await blocks until Ready, the timeout elapses, or ctx is done.
func (r *Readiness) Await(ctx context.Context, timeout time.Duration) bool {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		return true
	}
	if r.failed != nil || timeout <= 0 {
		r.mu.Unlock()
		return false
	}
	deadline := r.now().Add(timeout)
	if deadline.After(r.deadline) {
		r.deadline = deadline
	}
	r.waiters++
	readyCh := r.readyCh
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.waiters--
		r.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-readyCh:
		return true
	case <-timer.C:
		return r.Ready()
	case <-ctx.Done():
		return false
	}
}
