package consumer

import (
	"context"
)

// ShutdownSignal is a process-wide cancellation broadcast.
//
// It moves from active to cancelled exactly once, cancelling
// it again has no effect.
type ShutdownSignal struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewShutdownSignal creates an active signal, it's also
// cancelled when parent is done.
func NewShutdownSignal(parent context.Context) *ShutdownSignal {
	ctx, cancel := context.WithCancel(parent)
	return &ShutdownSignal{ctx: ctx, cancel: cancel}
}

// Cancel moves the signal to the cancelled state.
func (s *ShutdownSignal) Cancel() {
	s.cancel()
}

// Cancelled reports whether the signal has fired.
func (s *ShutdownSignal) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Done is closed when the signal fires.
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled when the signal fires, it's meant to be passed
// to blocking hub calls so they're interrupted at shutdown.
func (s *ShutdownSignal) Context() context.Context {
	return s.ctx
}
