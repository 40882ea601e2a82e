package session

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned when events are sent to a stopped loop
var ErrLoopStopped = errors.New("session loop stopped")

// Loop applies events to a Machine one at a time. Goroutines delivering
// analysis or feedback results go through the loop so "one selection at a
// time" and "submitted is monotonic" hold under interleaving.
type Loop struct {
	machine *Machine
	events  chan func(*Machine)
	stopped chan struct{}
}

// NewLoop creates a loop around m. Call Run to start processing.
func NewLoop(m *Machine) *Loop {
	return &Loop{
		machine: m,
		events:  make(chan func(*Machine), 64),
		stopped: make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.events:
			fn(l.machine)
		}
	}
}

// Send queues fn without waiting for it to run
func (l *Loop) Send(ctx context.Context, fn func(*Machine)) error {
	select {
	case l.events <- fn:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues fn and waits until it has run
func (l *Loop) Do(ctx context.Context, fn func(*Machine)) error {
	done := make(chan struct{})
	err := l.Send(ctx, func(m *Machine) {
		defer close(done)
		fn(m)
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
