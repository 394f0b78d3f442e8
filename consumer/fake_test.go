package consumer

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// fakeHub is an in-memory hub, every partition replays scripted batches.
type fakeHub struct {
	ids    []string
	idsErr error

	mu         sync.Mutex
	partitions map[string]*fakePartition
	opened     map[string]int
}

func newFakeHub(parts map[string]*fakePartition, ids ...string) *fakeHub {
	return &fakeHub{
		ids:        ids,
		partitions: parts,
		opened:     map[string]int{},
	}
}

func (h *fakeHub) PartitionIDs(ctx context.Context) ([]string, error) {
	if h.idsErr != nil {
		return nil, h.idsErr
	}
	return h.ids, nil
}

func (h *fakeHub) OpenPartition(ctx context.Context, hd PartitionHandle, prefetch int) (PartitionReceiver, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened[hd.PartitionID]++
	p, ok := h.partitions[hd.PartitionID]
	if !ok {
		p = &fakePartition{}
		h.partitions[hd.PartitionID] = p
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.mu.Lock()
	p.position = hd.Position
	p.mu.Unlock()
	return p, nil
}

func (h *fakeHub) openCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened[id]
}

// fakePartition returns batches one per call, then err if it's set,
// then empty batches after waiting.
type fakePartition struct {
	mu       sync.Mutex
	batches  [][]*RawEvent
	err      error
	openErr  error
	position Position
	calls    int
	closed   atomic.Bool
}

func (p *fakePartition) ReceiveBatch(ctx context.Context, max int, wait time.Duration) ([]*RawEvent, error) {
	p.mu.Lock()
	p.calls++
	if len(p.batches) > 0 {
		b := p.batches[0]
		p.batches = p.batches[1:]
		p.mu.Unlock()
		return b, nil
	}
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
		return nil, nil
	}
}

func (p *fakePartition) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *fakePartition) receiveCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// numbered returns n single-event batches with payloads "<prefix>-<i>".
func numbered(prefix string, n int) [][]*RawEvent {
	b := make([][]*RawEvent, 0, n)
	for i := 0; i < n; i++ {
		b = append(b, []*RawEvent{{Body: []byte(prefix + "-" + strconv.Itoa(i))}})
	}
	return b
}

// collector is a presenter that records payloads by partition.
type collector struct {
	mu     sync.Mutex
	byPart map[string][]string
	shown  []bool
	notify chan struct{}
}

func newCollector() *collector {
	return &collector{
		byPart: map[string][]string{},
		notify: make(chan struct{}, 1024),
	}
}

func (c *collector) Present(rec *EventRecord, showProperties bool) {
	c.mu.Lock()
	c.byPart[rec.PartitionID()] = append(c.byPart[rec.PartitionID()], string(rec.Payload()))
	c.shown = append(c.shown, showProperties)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *collector) get(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.byPart[id]...)
}

// waitFor blocks until the named partition has n payloads or the timeout expires.
func (c *collector) waitFor(id string, n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(c.get(id)) >= n {
			return true
		}
		select {
		case <-c.notify:
		case <-deadline:
			return false
		}
	}
}
