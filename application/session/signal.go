// Package session holds the shopper identity signal the cart engine reacts to.
package session

import (
	"strings"
	"sync"

	pkgerrors "cartsync/pkg/errors"
)

// State is either guest or authenticated with an opaque bearer credential
type State struct {
	authenticated bool
	credential    string
}

// Guest returns the unauthenticated state
func Guest() State {
	return State{}
}

// Authenticated returns the authenticated state for credential
func Authenticated(credential string) State {
	return State{authenticated: true, credential: credential}
}

// IsAuthenticated reports whether the state carries a credential
func (s State) IsAuthenticated() bool {
	return s.authenticated
}

// Credential returns the bearer token, empty for guests
func (s State) Credential() string {
	return s.credential
}

// String returns "guest" or "authenticated"
func (s State) String() string {
	if s.authenticated {
		return "authenticated"
	}
	return "guest"
}

// Transition is one change of identity
type Transition struct {
	From State
	To   State
}

// IsLogin reports a guest to authenticated edge
func (t Transition) IsLogin() bool {
	return !t.From.IsAuthenticated() && t.To.IsAuthenticated()
}

// Signal publishes identity changes to subscribers in the order they happen.
// Subscribers never miss a transition and never block the publisher.
type Signal struct {
	mu          sync.Mutex
	current     State
	subscribers map[*Subscription]struct{}
}

// NewSignal creates a signal in the guest state
func NewSignal() *Signal {
	return &Signal{
		current:     Guest(),
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Current returns the current identity
func (s *Signal) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Authenticate moves to the authenticated state. Re-authenticating with the
// same credential is not a transition.
func (s *Signal) Authenticate(credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return pkgerrors.NewValidationError("credential must not be empty")
	}
	s.set(Authenticated(credential))
	return nil
}

// SignOut moves to the guest state
func (s *Signal) SignOut() {
	s.set(Guest())
}

// Restore sets the identity without raising a transition. It is used to
// pick up a state that was already announced by another process.
func (s *Signal) Restore(state State) {
	s.mu.Lock()
	s.current = state
	s.mu.Unlock()
}

// Subscribe registers a new subscriber. Transitions raised after this call
// are delivered on the subscription's channel in order.
func (s *Signal) Subscribe() *Subscription {
	sub := newSubscription()

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	return sub
}

// Unsubscribe stops delivery to sub and closes its channel
func (s *Signal) Unsubscribe(sub *Subscription) {
	s.mu.Lock()
	_, ok := s.subscribers[sub]
	delete(s.subscribers, sub)
	s.mu.Unlock()

	if ok {
		sub.close()
	}
}

func (s *Signal) set(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next == s.current {
		return
	}
	t := Transition{From: s.current, To: next}
	s.current = next

	for sub := range s.subscribers {
		sub.push(t)
	}
}

// Subscription is an unbounded ordered queue of transitions drained into C
type Subscription struct {
	mu      sync.Mutex
	queue   []Transition
	pushed  uint64
	closed  bool
	wake    chan struct{}
	out     chan Transition
	stopped chan struct{}
}

func newSubscription() *Subscription {
	sub := &Subscription{
		wake:    make(chan struct{}, 1),
		out:     make(chan Transition),
		stopped: make(chan struct{}),
	}
	go sub.pump()
	return sub
}

// C returns the channel transitions are delivered on. It is closed on Unsubscribe.
func (sub *Subscription) C() <-chan Transition {
	return sub.out
}

// Pushed returns how many transitions have been queued for this subscriber
func (sub *Subscription) Pushed() uint64 {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.pushed
}

func (sub *Subscription) push(t Transition) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.queue = append(sub.queue, t)
	sub.pushed++
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *Subscription) close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()
	close(sub.stopped)
}

func (sub *Subscription) pump() {
	defer close(sub.out)

	for {
		sub.mu.Lock()
		if len(sub.queue) == 0 {
			sub.mu.Unlock()
			select {
			case <-sub.wake:
				continue
			case <-sub.stopped:
				return
			}
		}
		next := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- next:
		case <-sub.stopped:
			return
		}
	}
}
