package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubHub struct {
	ids  []string
	fail map[string]error
}

func (h *stubHub) PartitionIDs(context.Context) ([]string, error) {
	return h.ids, nil
}

func (h *stubHub) OpenPartition(_ context.Context, ph consumer.PartitionHandle, _ int) (consumer.PartitionReceiver, error) {
	return &stubReceiver{id: ph.PartitionID, err: h.fail[ph.PartitionID]}, nil
}

type stubReceiver struct {
	id   string
	err  error
	sent bool
}

func (r *stubReceiver) ReceiveBatch(ctx context.Context, _ int, wait time.Duration) ([]*consumer.RawEvent, error) {
	if !r.sent {
		r.sent = true
		return []*consumer.RawEvent{{Body: []byte("hello from " + r.id)}}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
		return nil, nil
	}
}

func (r *stubReceiver) Close() error {
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsumeInterrupted(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	delivered := make(chan struct{}, 2)
	presenter := consumer.PresenterFunc(func(rec *consumer.EventRecord, _ bool) {
		delivered <- struct{}{}
	})

	var stopped atomic.Bool
	errc := make(chan error, 1)
	go func() {
		errc <- consume(ctx, func() { stopped.Store(true) }, &stubHub{ids: []string{"0", "1"}}, presenter, &out,
			consumer.WithLogger(zaptest.NewLogger(t).Sugar()),
			consumer.WithMaxWait(10*time.Millisecond),
		)
	}()
	<-delivered
	<-delivered
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consume didn't return")
	}
	require.True(t, stopped.Load(), "signal handling isn't released after the interrupt")
	require.Equal(t, "Listening for messages on all partitions: 0, 1.\n"+
		"Exiting...\n"+
		"Cloud message reader finished.\n", out.String())
}

func TestConsumePartitionFailure(t *testing.T) {
	defer leaktest.Check(t)()

	var out syncBuffer
	hub := &stubHub{
		ids:  []string{"0", "1"},
		fail: map[string]error{"1": errors.New("link detached")},
	}
	stopped := false
	err := consume(context.Background(), func() { stopped = true }, hub, consumer.PresenterFunc(func(*consumer.EventRecord, bool) {}), &out,
		consumer.WithLogger(zaptest.NewLogger(t).Sugar()),
		consumer.WithMaxWait(10*time.Millisecond),
		consumer.WithFailFast(true),
	)
	require.ErrorIs(t, err, errPartitionsFailed)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Partitions failed: 1", lines[1])
	require.Contains(t, lines[2], "link detached")
	require.Equal(t, "Cloud message reader finished.", lines[3])
	require.NotContains(t, out.String(), "Exiting...")
	require.False(t, stopped)
}

func TestConsumeDiscoveryFailure(t *testing.T) {
	var out syncBuffer
	err := consume(context.Background(), func() {}, &stubHub{}, consumer.PresenterFunc(func(*consumer.EventRecord, bool) {}), &out,
		consumer.WithLogger(zaptest.NewLogger(t).Sugar()),
	)
	var cerr *consumer.ConnectionError
	require.ErrorAs(t, err, &cerr)
	require.Empty(t, out.String())
}

func TestNewPresenter(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	rec := consumer.NewEventRecord("5", &consumer.RawEvent{Body: []byte("hi")})

	var buf bytes.Buffer
	p, closeFn, err := newPresenter(&Config{Output: outputText}, &buf, logger)
	require.NoError(t, err)
	p.Present(rec, false)
	closeFn()
	require.Equal(t, "\nMessage received on partition 5:\n\tMessage body: hi\n", buf.String())

	buf.Reset()
	p, closeFn, err = newPresenter(&Config{Output: outputJSON, Compact: true}, &buf, logger)
	require.NoError(t, err)
	p.Present(rec, false)
	closeFn()
	require.Equal(t, `{"partitionId":"5","body":"hi"}`+"\n", buf.String())
}
