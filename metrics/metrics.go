package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "iothub_d2c"

// batch outcome label values
const (
	OutcomeEmpty = "empty"
	OutcomeData  = "data"
)

// Metrics holds collectors of the partition consumers.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	eventsReceived  *prometheus.CounterVec
	batches         *prometheus.CounterVec
	receiveErrors   *prometheus.CounterVec
	consumersActive prometheus.Gauge
	lastEnqueued    *prometheus.GaugeVec
}

// New creates collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_received_total",
			Help:      "Total events delivered to the presenter by partition",
		}, []string{"partition"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Total receive calls by partition and outcome",
		}, []string{"partition", "outcome"}),
		receiveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "receive_errors_total",
			Help:      "Total terminal receive errors by partition",
		}, []string{"partition"}),
		consumersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "consumers_active",
			Help:      "Number of partition consumers currently running",
		}),
		lastEnqueued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_enqueued_timestamp_seconds",
			Help:      "Enqueued time of the last delivered event by partition",
		}, []string{"partition"}),
	}

	for _, c := range []prometheus.Collector{
		m.eventsReceived,
		m.batches,
		m.receiveErrors,
		m.consumersActive,
		m.lastEnqueued,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveBatch records a receive call that returned n events.
func (m *Metrics) ObserveBatch(partition string, n int) {
	if m == nil {
		return
	}
	if n == 0 {
		m.batches.WithLabelValues(partition, OutcomeEmpty).Inc()
		return
	}
	m.batches.WithLabelValues(partition, OutcomeData).Inc()
	m.eventsReceived.WithLabelValues(partition).Add(float64(n))
}

// ObserveEnqueued records the enqueued time of the last delivered event.
func (m *Metrics) ObserveEnqueued(partition string, t time.Time) {
	if m == nil || t.IsZero() {
		return
	}
	m.lastEnqueued.WithLabelValues(partition).Set(float64(t.UnixNano()) / 1e9)
}

// IncReceiveErrors counts a terminal partition failure.
func (m *Metrics) IncReceiveErrors(partition string) {
	if m == nil {
		return
	}
	m.receiveErrors.WithLabelValues(partition).Inc()
}

// ConsumerStarted increments the active consumers gauge.
func (m *Metrics) ConsumerStarted() {
	if m == nil {
		return
	}
	m.consumersActive.Inc()
}

// ConsumerStopped decrements the active consumers gauge.
func (m *Metrics) ConsumerStopped() {
	if m == nil {
		return
	}
	m.consumersActive.Dec()
}
