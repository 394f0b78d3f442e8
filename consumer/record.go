package consumer

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Property is a single named message property.
type Property struct {
	Name  string
	Value interface{}
}

// Properties is an ordered list of message properties.
type Properties []Property

// Get returns the value of the named property and whether it's present.
func (p Properties) Get(name string) (interface{}, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return nil, false
}

// Len returns number of properties.
func (p Properties) Len() int {
	return len(p)
}

// RawEvent is an event as it's returned by a hub client,
// before it's bound to a partition and normalized.
type RawEvent struct {
	Body                  []byte
	ApplicationProperties Properties
	SystemProperties      Properties
	EnqueuedTime          time.Time
}

// EventRecord is a normalized device-to-cloud message received from a partition.
//
// It's immutable once constructed, accessors return copies.
type EventRecord struct {
	partitionID string
	payload     []byte
	appProps    Properties
	sysProps    Properties
	enqueuedAt  time.Time
}

// NewEventRecord creates a record from the raw event received on the named partition.
// The payload and properties are copied so the raw event may be reused.
func NewEventRecord(partitionID string, ev *RawEvent) *EventRecord {
	rec := &EventRecord{partitionID: partitionID}
	if ev == nil {
		return rec
	}
	rec.payload = copyBytes(ev.Body)
	rec.appProps = copyProps(ev.ApplicationProperties)
	rec.sysProps = copyProps(ev.SystemProperties)
	rec.enqueuedAt = ev.EnqueuedTime
	return rec
}

// PartitionID is the partition the record was received from.
func (r *EventRecord) PartitionID() string {
	return r.partitionID
}

// Payload returns a copy of the raw payload bytes.
func (r *EventRecord) Payload() []byte {
	return copyBytes(r.payload)
}

// Text decodes the payload as UTF-8 text, invalid sequences are
// replaced with the unicode replacement character.
func (r *EventRecord) Text() string {
	if utf8.Valid(r.payload) {
		return string(r.payload)
	}
	return strings.ToValidUTF8(string(r.payload), string(utf8.RuneError))
}

// ApplicationProperties are the properties set by the device.
func (r *EventRecord) ApplicationProperties() Properties {
	return copyProps(r.appProps)
}

// SystemProperties are the properties set by the hub.
func (r *EventRecord) SystemProperties() Properties {
	return copyProps(r.sysProps)
}

// EnqueuedTime is the time the hub accepted the message, zero if unknown.
func (r *EventRecord) EnqueuedTime() time.Time {
	return r.enqueuedAt
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func copyProps(p Properties) Properties {
	if len(p) == 0 {
		return nil
	}
	c := make(Properties, len(p))
	copy(c, p)
	return c
}
