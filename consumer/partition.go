package consumer

import (
	"sync/atomic"
)

// State is a partition consumer lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateListening
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PartitionConsumer owns the receive loop of a single partition.
type PartitionConsumer struct {
	hub       Hub
	handle    PartitionHandle
	presenter Presenter
	signal    *ShutdownSignal
	opts      *options

	state     atomic.Int32
	delivered atomic.Uint64
}

// NewPartitionConsumer creates a consumer bound to the given handle,
// it's stopped by cancelling the signal.
func NewPartitionConsumer(
	hub Hub,
	h PartitionHandle,
	presenter Presenter,
	signal *ShutdownSignal,
	opts ...Option,
) *PartitionConsumer {
	return newPartitionConsumer(hub, h, presenter, signal, newOptions(opts))
}

func newPartitionConsumer(
	hub Hub,
	h PartitionHandle,
	presenter Presenter,
	signal *ShutdownSignal,
	opts *options,
) *PartitionConsumer {
	return &PartitionConsumer{
		hub:       hub,
		handle:    h,
		presenter: presenter,
		signal:    signal,
		opts:      opts,
	}
}

// PartitionID is the id of the consumed partition.
func (c *PartitionConsumer) PartitionID() string {
	return c.handle.PartitionID
}

// State returns the current lifecycle state.
func (c *PartitionConsumer) State() State {
	return State(c.state.Load())
}

// Delivered is the number of events handed to the presenter so far.
func (c *PartitionConsumer) Delivered() uint64 {
	return c.delivered.Load()
}

// Run receives events until the shutdown signal fires, returning nil,
// or until the hub client fails, returning a *ReceiveError.
// Receive errors are never retried.
func (c *PartitionConsumer) Run() error {
	defer c.setState(StateStopped)

	c.opts.metrics.ConsumerStarted()
	defer c.opts.metrics.ConsumerStopped()

	id := c.handle.PartitionID
	ctx := c.signal.Context()
	r, err := c.hub.OpenPartition(ctx, c.handle, c.opts.batchSize)
	if err != nil {
		if c.isCancellation(err) {
			return nil
		}
		return c.fail(err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			c.opts.logger.Debugf("partition %s: close receiver: %s", id, err)
		}
	}()

	c.setState(StateListening)
	c.opts.logger.Infof("listening for messages on partition %s from %s", id, c.handle.Position)

	for {
		if c.signal.Cancelled() {
			c.setState(StateDraining)
			return nil
		}

		events, err := r.ReceiveBatch(ctx, c.opts.batchSize, c.opts.maxWait)
		c.opts.metrics.ObserveBatch(id, len(events))
		c.deliver(events)
		if err != nil {
			if c.isCancellation(err) {
				c.setState(StateDraining)
				return nil
			}
			return c.fail(err)
		}
	}
}

// deliver hands events to the presenter in the order they were received.
func (c *PartitionConsumer) deliver(events []*RawEvent) {
	for _, ev := range events {
		rec := NewEventRecord(c.handle.PartitionID, ev)
		c.presenter.Present(rec, c.opts.showProperties)
		c.delivered.Add(1)
		c.opts.metrics.ObserveEnqueued(c.handle.PartitionID, rec.EnqueuedTime())
	}
}

// isCancellation reports whether err is an expected outcome of shutdown,
// any error observed after the signal fired counts as one.
func (c *PartitionConsumer) isCancellation(err error) bool {
	return IsCancelled(err) || c.signal.Cancelled()
}

func (c *PartitionConsumer) fail(err error) error {
	c.opts.metrics.IncReceiveErrors(c.handle.PartitionID)
	c.opts.logger.Errorf("partition %s: %s", c.handle.PartitionID, err)
	return &ReceiveError{PartitionID: c.handle.PartitionID, Err: err}
}

func (c *PartitionConsumer) setState(s State) {
	c.state.Store(int32(s))
}
