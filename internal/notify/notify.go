// Package notify delivers session events to subscribers.
package notify

import "sync"

// Broadcaster delivers an event to a room. Broadcast must return without
// waiting on slow subscribers.
type Broadcaster interface {
	Broadcast(room, event string, payload any)
}

// Nop drops every event.
type Nop struct{}

// Broadcast implements Broadcaster.
func (Nop) Broadcast(string, string, any) {}

// Fanout forwards every event to each of its targets in order.
type Fanout struct {
	mu      sync.RWMutex
	targets []Broadcaster
}

// NewFanout creates a Fanout over targets. Nil targets are skipped.
func NewFanout(targets ...Broadcaster) *Fanout {
	f := &Fanout{}
	for _, t := range targets {
		f.Add(t)
	}
	return f
}

// Add appends a target. Targets added while events are in flight only see
// later events.
func (f *Fanout) Add(t Broadcaster) {
	if t == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, t)
}

// Broadcast implements Broadcaster.
func (f *Fanout) Broadcast(room, event string, payload any) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.targets {
		t.Broadcast(room, event, payload)
	}
}

// Len returns the number of targets.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.targets)
}
