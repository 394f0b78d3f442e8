package consumer

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// JoinResult is the outcome of all partition consumers.
type JoinResult struct {
	// Clean is the number of consumers that exited without an error.
	Clean int

	// Failures are partition failures in the order they happened.
	Failures []*ReceiveError
}

// Err returns the first partition failure or nil.
func (r *JoinResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return r.Failures[0]
}

// FailedPartitions lists ids of partitions that failed.
func (r *JoinResult) FailedPartitions() []string {
	ids := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.PartitionID)
	}
	return ids
}

// Supervisor runs one consumer per hub partition and coordinates their shutdown.
type Supervisor struct {
	signal    *ShutdownSignal
	opts      *options
	consumers []*PartitionConsumer
	done      chan struct{}

	mu     sync.Mutex
	result JoinResult
}

// Start discovers hub partitions and starts a consumer for each of them.
//
// A discovery failure is returned as *ConnectionError and no consumers are
// started. Cancelling ctx has the same effect as calling Shutdown.
func Start(ctx context.Context, hub Hub, presenter Presenter, opts ...Option) (*Supervisor, error) {
	o := newOptions(opts)

	ids, err := hub.PartitionIDs(ctx)
	if err != nil {
		var cerr *ConnectionError
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &ConnectionError{Err: err}
	}
	if len(ids) == 0 {
		return nil, &ConnectionError{Err: errors.New("hub reports no partitions")}
	}

	s := &Supervisor{
		signal: NewShutdownSignal(ctx),
		opts:   o,
		done:   make(chan struct{}),
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			o.logger.Warnf("partition %s is reported more than once, skipping duplicate", id)
			continue
		}
		seen[id] = true
		s.consumers = append(s.consumers, newPartitionConsumer(
			hub, PartitionHandle{PartitionID: id, Position: o.position}, presenter, s.signal, o,
		))
	}
	o.logger.Infof("starting %d partition consumers", len(s.consumers))

	var g errgroup.Group
	for _, c := range s.consumers {
		g.Go(func() error {
			err := c.Run()
			s.finished(err)
			return err
		})
	}
	go func() {
		_ = g.Wait()
		close(s.done)
	}()
	return s, nil
}

func (s *Supervisor) finished(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rerr *ReceiveError
	if err == nil || !errors.As(err, &rerr) {
		s.result.Clean++
		return
	}
	s.result.Failures = append(s.result.Failures, rerr)
	if s.opts.failFast {
		s.opts.logger.Warnf("partition %s failed, shutting down the remaining partitions", rerr.PartitionID)
		s.signal.Cancel()
	}
}

// Shutdown signals all consumers to stop, it doesn't wait for them.
// It's safe to call it multiple times.
func (s *Supervisor) Shutdown() {
	s.signal.Cancel()
}

// Done is closed when all consumers have exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Join blocks until all consumers have exited and returns their aggregated result.
func (s *Supervisor) Join() *JoinResult {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return &JoinResult{
		Clean:    s.result.Clean,
		Failures: append([]*ReceiveError(nil), s.result.Failures...),
	}
}

// Partitions returns ids of consumed partitions.
func (s *Supervisor) Partitions() []string {
	ids := make([]string, 0, len(s.consumers))
	for _, c := range s.consumers {
		ids = append(ids, c.PartitionID())
	}
	return ids
}

// States returns current state of every partition consumer.
func (s *Supervisor) States() map[string]State {
	m := make(map[string]State, len(s.consumers))
	for _, c := range s.consumers {
		m[c.PartitionID()] = c.State()
	}
	return m
}

// Delivered returns number of delivered events by partition.
func (s *Supervisor) Delivered() map[string]uint64 {
	m := make(map[string]uint64, len(s.consumers))
	for _, c := range s.consumers {
		m[c.PartitionID()] = c.Delivered()
	}
	return m
}
