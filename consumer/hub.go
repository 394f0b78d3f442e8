package consumer

import (
	"context"
	"time"
)

// Hub is a connected message hub client.
//
// The connection is shared by all partition consumers, each of them
// opens its own receiver on it.
type Hub interface {
	// PartitionIDs lists the hub partitions in the order they're reported.
	PartitionIDs(ctx context.Context) ([]string, error)

	// OpenPartition opens a receiver bound to the given handle,
	// prefetch is a hint of how many events the receiver may buffer.
	OpenPartition(ctx context.Context, h PartitionHandle, prefetch int) (PartitionReceiver, error)
}

// PartitionReceiver reads events of a single partition,
// it tracks the read position on its own.
type PartitionReceiver interface {
	// ReceiveBatch waits up to wait for at least one event and returns
	// up to max events. An empty batch with a nil error means there's
	// no data yet.
	//
	// When ctx is cancelled it returns ctx.Err() or ErrCancelled,
	// possibly along with events that were already received.
	ReceiveBatch(ctx context.Context, max int, wait time.Duration) ([]*RawEvent, error)

	// Close releases the receiver.
	Close() error
}

// Presenter renders event records, it must be safe for concurrent use.
type Presenter interface {
	Present(rec *EventRecord, showProperties bool)
}

// PresenterFunc is a function adapter for Presenter.
type PresenterFunc func(rec *EventRecord, showProperties bool)

// Present calls fn(rec, showProperties).
func (fn PresenterFunc) Present(rec *EventRecord, showProperties bool) {
	fn(rec, showProperties)
}
