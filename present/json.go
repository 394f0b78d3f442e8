package present

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/amenzhinsky/iothub-d2c/common"
	"github.com/amenzhinsky/iothub-d2c/consumer"
)

// Document is the JSON representation of an event record.
type Document struct {
	PartitionID           string                 `json:"partitionId"`
	Body                  string                 `json:"body"`
	EnqueuedTime          string                 `json:"enqueuedTime,omitempty"`
	ApplicationProperties []DocumentProperty `json:"applicationProperties,omitempty"`
	SystemProperties      []DocumentProperty `json:"systemProperties,omitempty"`
}

// DocumentProperty is a message property, documents keep properties
// in the order they were received.
type DocumentProperty struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// NewDocument converts the record, properties are only included when showProperties is set.
func NewDocument(rec *consumer.EventRecord, showProperties bool) *Document {
	d := &Document{
		PartitionID: rec.PartitionID(),
		Body:        FormatPayload(rec.Payload()),
	}
	if t := rec.EnqueuedTime(); !t.IsZero() {
		d.EnqueuedTime = t.Format(TimeLayout)
	}
	if showProperties {
		d.ApplicationProperties = jsonProperties(rec.ApplicationProperties())
		d.SystemProperties = jsonProperties(rec.SystemProperties())
	}
	return d
}

func jsonProperties(props consumer.Properties) []DocumentProperty {
	if len(props) == 0 {
		return nil
	}
	d := make([]DocumentProperty, 0, len(props))
	for _, p := range props {
		d = append(d, DocumentProperty{Name: p.Name, Value: jsonValue(p.Value)})
	}
	return d
}

// jsonValue keeps scalars as they are and renders everything else
// as text, amqp values may not be marshallable.
func jsonValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	default:
		return FormatValue(v)
	}
}

// JSONOption is a JSON presenter option.
type JSONOption func(j *JSON)

// WithCompact disables indentation, one document per line.
func WithCompact(compact bool) JSONOption {
	return func(j *JSON) {
		j.compact = compact
	}
}

// WithJSONLogger sets the logger encoding errors are reported to.
func WithJSONLogger(l common.Logger) JSONOption {
	return func(j *JSON) {
		j.logger = l
	}
}

// JSON writes a JSON document for every record.
type JSON struct {
	mu      sync.Mutex
	w       io.Writer
	compact bool
	logger  common.Logger
}

var _ consumer.Presenter = (*JSON)(nil)

// NewJSON creates a JSON presenter writing to w, os.Stdout when w is nil.
func NewJSON(w io.Writer, opts ...JSONOption) *JSON {
	if w == nil {
		w = os.Stdout
	}
	j := &JSON{
		w:      w,
		logger: common.NewLoggerFromEnv("present", "IOTHUB_D2C_LOG_LEVEL"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *JSON) Present(rec *consumer.EventRecord, showProperties bool) {
	b, err := j.marshal(NewDocument(rec, showProperties))
	if err != nil {
		j.logger.Errorf("encode record of partition %s: %s", rec.PartitionID(), err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err = fmt.Fprintln(j.w, string(b)); err != nil {
		j.logger.Errorf("write record of partition %s: %s", rec.PartitionID(), err)
	}
}

func (j *JSON) marshal(d *Document) ([]byte, error) {
	if j.compact {
		return json.Marshal(d)
	}
	return json.MarshalIndent(d, "", "\t")
}
