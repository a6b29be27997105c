package test

import (
	"context"
	"sync"

	"github.com/papercomputeco/engram/pkg/events"
)

// CapturingSink records every published event for assertions.
type CapturingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func NewCapturingSink() *CapturingSink {
	return &CapturingSink{}
}

func (s *CapturingSink) Publish(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *CapturingSink) Close() error {
	return nil
}

// Events returns a snapshot of everything published so far.
func (s *CapturingSink) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType filters captured events by type.
func (s *CapturingSink) ByType(t events.Type) []events.Event {
	var out []events.Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
