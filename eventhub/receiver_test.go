package eventhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/google/go-cmp/cmp"
	"pack.ag/amqp"
)

// step is one scripted outcome of a Receive call.
type step struct {
	body string
	err  error
}

// scriptedLink replays steps and then blocks until the context is done.
type scriptedLink struct {
	mu     sync.Mutex
	steps  []step
	closed bool
}

func (l *scriptedLink) Receive(ctx context.Context) (*amqp.Message, error) {
	l.mu.Lock()
	if len(l.steps) != 0 {
		s := l.steps[0]
		l.steps = l.steps[1:]
		l.mu.Unlock()
		if s.err != nil {
			return nil, s.err
		}
		return &amqp.Message{Data: [][]byte{[]byte(s.body)}}, nil
	}
	l.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (l *scriptedLink) Close(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func newTestReceiver(steps ...step) (*receiver, *int) {
	var accepted int
	r := newReceiver(&scriptedLink{steps: steps})
	r.accept = func(*amqp.Message) error {
		accepted++
		return nil
	}
	return r, &accepted
}

func bodies(events []*consumer.RawEvent) []string {
	s := make([]string, 0, len(events))
	for _, ev := range events {
		s = append(s, string(ev.Body))
	}
	return s
}

func TestReceiveBatch(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	linkErr := errors.New("link detached")
	for _, s := range []struct {
		name  string
		ctx   context.Context
		steps []step
		max   int
		want  []string
		err   error
	}{
		{"timeout", context.Background(), nil, 10, []string{}, nil},
		{"cancelled", cancelled, nil, 10, []string{}, context.Canceled},
		{"bounded", context.Background(), []step{{body: "a"}, {body: "b"}, {body: "c"}, {body: "d"}}, 3, []string{"a", "b", "c"}, nil},
		{"partial", context.Background(), []step{{body: "a"}, {body: "b"}, {err: linkErr}}, 10, []string{"a", "b"}, linkErr},
	} {
		t.Run(s.name, func(t *testing.T) {
			t.Parallel()

			r, accepted := newTestReceiver(s.steps...)
			events, err := r.ReceiveBatch(s.ctx, s.max, 10*time.Millisecond)
			if !errors.Is(err, s.err) {
				t.Fatalf("ReceiveBatch error = %v, want %v", err, s.err)
			}
			if have := bodies(events); !cmp.Equal(have, s.want) {
				t.Errorf("ReceiveBatch = %q, want %q", have, s.want)
			}
			if *accepted != len(s.want) {
				t.Errorf("accepted %d messages, want %d", *accepted, len(s.want))
			}
		})
	}
}

func TestReceiveBatchKeepsRemainder(t *testing.T) {
	t.Parallel()

	r, _ := newTestReceiver(step{body: "a"}, step{body: "b"}, step{body: "c"})
	events, err := r.ReceiveBatch(context.Background(), 2, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if have := bodies(events); !cmp.Equal(have, []string{"a", "b"}) {
		t.Fatalf("first batch = %q", have)
	}
	events, err = r.ReceiveBatch(context.Background(), 2, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if have := bodies(events); !cmp.Equal(have, []string{"c"}) {
		t.Fatalf("second batch = %q", have)
	}
}

func TestReceiveBatchAcceptFailure(t *testing.T) {
	t.Parallel()

	acceptErr := errors.New("disposition failed")
	r := newReceiver(&scriptedLink{steps: []step{{body: "a"}, {body: "b"}}})
	var n int
	r.accept = func(*amqp.Message) error {
		if n++; n == 2 {
			return acceptErr
		}
		return nil
	}
	events, err := r.ReceiveBatch(context.Background(), 10, time.Second)
	if !errors.Is(err, acceptErr) {
		t.Fatalf("ReceiveBatch error = %v, want %v", err, acceptErr)
	}
	if have := bodies(events); !cmp.Equal(have, []string{"a"}) {
		t.Errorf("ReceiveBatch = %q, want [a]", have)
	}
}

func TestReceiverClose(t *testing.T) {
	t.Parallel()

	l := &scriptedLink{}
	if err := newReceiver(l).Close(); err != nil {
		t.Fatal(err)
	}
	if !l.closed {
		t.Error("link isn't closed")
	}
}
