package session

import (
	"sync"
)

// Principal is the authenticated user a component acts for.
type Principal struct {
	UserID string
	Email  string
}

// EventKind describes what changed about the session.
type EventKind string

const (
	EventSignedIn        EventKind = "signed_in"
	EventSignedOut       EventKind = "signed_out"
	EventUserUpdated     EventKind = "user_updated"
	EventPasswordUpdated EventKind = "password_updated"
)

// Event is delivered to subscribers after every session change.
type Event struct {
	Kind      EventKind
	Principal *Principal
}

// Listener receives session events. It is called synchronously and must not
// call back into the Tracker's mutators.
type Listener func(Event)

// Tracker holds the current principal and notifies subscribers when it changes.
// Components receive a Tracker explicitly instead of reading shared global state.
type Tracker struct {
	mu        sync.RWMutex
	current   *Principal
	nextID    int
	listeners map[int]Listener
}

// NewTracker creates a Tracker, optionally already signed in
func NewTracker(initial *Principal) *Tracker {
	return &Tracker{
		current:   clonePrincipal(initial),
		listeners: make(map[int]Listener),
	}
}

// Current returns a copy of the signed-in principal, or nil.
func (t *Tracker) Current() *Principal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clonePrincipal(t.current)
}

func (t *Tracker) SignIn(p Principal) {
	t.set(&p, EventSignedIn)
}

func (t *Tracker) SignOut() {
	t.set(nil, EventSignedOut)
}

// Update replaces the principal details of the current session
func (t *Tracker) Update(p Principal) {
	t.set(&p, EventUserUpdated)
}

// PasswordUpdated notifies subscribers without changing the principal
func (t *Tracker) PasswordUpdated() {
	t.mu.RLock()
	current := clonePrincipal(t.current)
	t.mu.RUnlock()
	t.emit(Event{Kind: EventPasswordUpdated, Principal: current})
}

// Subscribe registers l and returns a function that removes it.
func (t *Tracker) Subscribe(l Listener) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

func (t *Tracker) set(p *Principal, kind EventKind) {
	t.mu.Lock()
	t.current = clonePrincipal(p)
	t.mu.Unlock()
	t.emit(Event{Kind: kind, Principal: clonePrincipal(p)})
}

func (t *Tracker) emit(e Event) {
	t.mu.RLock()
	listeners := make([]Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}

func clonePrincipal(p *Principal) *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
