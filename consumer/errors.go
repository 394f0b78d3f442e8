package consumer

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is returned by hub clients when a receive call
// is interrupted by shutdown, it's an expected outcome.
var ErrCancelled = errors.New("consumer: cancelled")

// ConnectionError is a startup failure: unreachable endpoint,
// invalid credentials or unknown hub name.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "connection error: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ReceiveError is a terminal failure of a single partition.
type ReceiveError struct {
	PartitionID string
	Err         error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("partition %s: receive error: %s", e.PartitionID, e.Err)
}

func (e *ReceiveError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err means the operation was cancelled on purpose.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
