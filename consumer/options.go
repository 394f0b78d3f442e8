package consumer

import (
	"time"

	"github.com/amenzhinsky/iothub-d2c/common"
	"github.com/amenzhinsky/iothub-d2c/metrics"
)

const (
	DefaultBatchSize = 100
	DefaultMaxWait   = 5 * time.Second
)

type options struct {
	showProperties bool
	batchSize      int
	maxWait        time.Duration
	position       Position
	failFast       bool
	logger         common.Logger
	metrics        *metrics.Metrics
}

func newOptions(opts []Option) *options {
	o := &options{
		batchSize: DefaultBatchSize,
		maxWait:   DefaultMaxWait,
		position:  Latest(),
		logger:    common.NewLoggerFromEnv("consumer", "IOTHUB_D2C_LOG_LEVEL"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option is a supervisor configuration option.
type Option func(o *options)

// WithShowProperties makes the presenter render application and system properties.
func WithShowProperties(show bool) Option {
	return func(o *options) {
		o.showProperties = show
	}
}

// WithBatchSize sets maximum number of events requested by a single receive call.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithMaxWait sets how long a single receive call waits for data.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxWait = d
		}
	}
}

// WithStartPosition sets where every partition starts reading, Latest by default.
func WithStartPosition(p Position) Option {
	return func(o *options) {
		o.position = p
	}
}

// WithFailFast makes the first partition failure shut down all other partitions,
// by default failures are logged and healthy partitions keep running.
func WithFailFast(enabled bool) Option {
	return func(o *options) {
		o.failFast = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l common.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
