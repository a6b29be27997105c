// Package nop provides a sink that discards every event. It is the
// default when no event transport is configured.
package nop

import (
	"context"

	"github.com/papercomputeco/engram/pkg/events"
)

type Sink struct{}

func New() *Sink {
	return &Sink{}
}

func (s *Sink) Publish(_ context.Context, _ events.Event) error {
	return nil
}

func (s *Sink) Close() error {
	return nil
}
