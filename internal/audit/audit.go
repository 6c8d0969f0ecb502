package audit

import "context"

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Sink receives dispatched events of type E.
type Sink[E any] interface {
	Emit(ctx context.Context, event E)
}

// NoOpSink drops every event.
type NoOpSink[E any] struct{}

func (NoOpSink[E]) Emit(context.Context, E) {}
