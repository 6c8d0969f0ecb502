package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher forwards events to a sink from one goroutine, so the sink never
// sees concurrent Emit calls from it. A sink that panics loses that event
// only; the panic is counted and the loop keeps running.
type Dispatcher[E any] struct {
	dropIfFull bool
	sink       Sink[E]
	queue      chan E
	stop       chan struct{}
	stopped    chan struct{}

	dropped   atomic.Uint64
	panics    atomic.Uint64
	closing   atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is
// false; every method is safe on a nil *Dispatcher.
func NewDispatcher[E any](cfg Config, sink Sink[E]) *Dispatcher[E] {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink[E]{}
	}

	d := &Dispatcher[E]{
		dropIfFull: cfg.DropIfFull,
		sink:       sink,
		queue:      make(chan E, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher[E]) loop() {
	defer close(d.stopped)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher[E]) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher[E]) deliver(ev E) {
	defer func() {
		if recover() != nil {
			d.panics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit queues event. With DropIfFull it never blocks and counts the event as
// dropped when the buffer is full; otherwise it waits for space, ctx or Close.
func (d *Dispatcher[E]) Emit(ctx context.Context, event E) {
	if d == nil || d.closing.Load() {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case d.queue <- event:
	case <-done:
	case <-d.stop:
	}
}

// Close delivers queued events and stops the dispatcher. It is idempotent.
func (d *Dispatcher[E]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
	})
	<-d.stopped
}

// Dropped counts events discarded because the buffer was full.
func (d *Dispatcher[E]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// SinkPanics counts events whose delivery panicked.
func (d *Dispatcher[E]) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panics.Load()
}
