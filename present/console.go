package present

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/amenzhinsky/iothub-d2c/consumer"
)

// Console writes human readable records, writes of different
// partitions are serialized so lines never interleave.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ consumer.Presenter = (*Console)(nil)

// NewConsole creates a console presenter writing to w, os.Stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Present writes the record, the whole record is flushed in a single write.
func (c *Console) Present(rec *consumer.EventRecord, showProperties bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := bufio.NewWriter(c.w)
	w.WriteString("\nMessage received on partition " + rec.PartitionID() + ":\n")
	w.WriteString("\tMessage body: " + rec.Text() + "\n")
	if showProperties {
		w.WriteString("\tApplication properties (set by device):\n")
		w.WriteString(FormatProperties(rec.ApplicationProperties(), "\t\t"))
		w.WriteString("\tSystem properties (set by IoT hub):\n")
		w.WriteString(FormatProperties(rec.SystemProperties(), "\t\t"))
	}
	_ = w.Flush()
}
