package consumer

import (
	"fmt"
	"strings"
	"time"
)

// PositionKind is a kind of partition starting position.
type PositionKind uint8

const (
	// PositionLatest reads only events enqueued after the reader is opened.
	PositionLatest PositionKind = iota

	// PositionEarliest reads the whole retained backlog.
	PositionEarliest

	// PositionEnqueuedTime reads events enqueued after a point in time.
	PositionEnqueuedTime
)

// Position is a starting read position inside a partition.
type Position struct {
	kind PositionKind
	time time.Time
}

// Latest starts at "now" so historical backlog is not replayed.
func Latest() Position {
	return Position{kind: PositionLatest}
}

// Earliest starts at the oldest retained event.
func Earliest() Position {
	return Position{kind: PositionEarliest}
}

// EnqueuedAfter starts at the first event enqueued after t.
func EnqueuedAfter(t time.Time) Position {
	return Position{kind: PositionEnqueuedTime, time: t}
}

// Kind returns the position kind.
func (p Position) Kind() PositionKind {
	return p.kind
}

// Time is the enqueued time marker, only meaningful for PositionEnqueuedTime.
func (p Position) Time() time.Time {
	return p.time
}

// Resolve converts a latest position into an enqueued time marker,
// so a handle keeps meaning "now" as of the moment it was opened.
func (p Position) Resolve(now time.Time) Position {
	if p.kind == PositionLatest {
		return EnqueuedAfter(now)
	}
	return p
}

func (p Position) String() string {
	switch p.kind {
	case PositionLatest:
		return "latest"
	case PositionEarliest:
		return "earliest"
	case PositionEnqueuedTime:
		return p.time.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("position(%d)", p.kind)
	}
}

// ParsePosition parses "latest" (or "now"), "earliest" or an RFC3339 timestamp.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest", "now":
		return Latest(), nil
	case "earliest", "start":
		return Earliest(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return Position{}, fmt.Errorf("malformed position %q: want latest, earliest or RFC3339 time", s)
	}
	return EnqueuedAfter(t), nil
}

// PartitionHandle identifies a partition and where to start reading it.
// A handle is owned by exactly one PartitionConsumer.
type PartitionHandle struct {
	PartitionID string
	Position    Position
}
