package present

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/amenzhinsky/iothub-d2c/common"
	"github.com/amenzhinsky/iothub-d2c/consumer"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultQoS          = 1
	defaultTopicPrefix  = "iothub/d2c"
	defaultPublishWait  = 10 * time.Second
	disconnectQuiesceMs = 250
)

// Publisher is the part of mqtt.Client used for forwarding.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTOption is an MQTT presenter option.
type MQTTOption func(m *MQTT)

// WithTopicPrefix sets the prefix records are published under,
// the partition id is appended to it.
func WithTopicPrefix(prefix string) MQTTOption {
	return func(m *MQTT) {
		if prefix != "" {
			m.prefix = strings.TrimSuffix(prefix, "/")
		}
	}
}

// WithPublishTimeout limits how long publishing of a single record may block.
func WithPublishTimeout(d time.Duration) MQTTOption {
	return func(m *MQTT) {
		m.timeout = d
	}
}

// WithMQTTLogger sets the logger publishing errors are reported to.
func WithMQTTLogger(l common.Logger) MQTTOption {
	return func(m *MQTT) {
		m.logger = l
	}
}

// MQTT forwards records as JSON documents to an MQTT broker.
type MQTT struct {
	pub     Publisher
	prefix  string
	timeout time.Duration
	logger  common.Logger
}

var _ consumer.Presenter = (*MQTT)(nil)

// DialMQTT connects to the broker, e.g. tcp://localhost:1883, and
// returns a presenter forwarding records to it.
func DialMQTT(broker, clientID string, opts ...MQTTOption) (*MQTT, error) {
	if broker == "" {
		return nil, errors.New("mqtt broker address is empty")
	}
	m := NewMQTT(nil, opts...)

	o := mqtt.NewClientOptions()
	o.AddBroker(broker)
	o.SetClientID(clientID)
	o.SetAutoReconnect(true)
	o.SetCleanSession(true)
	if strings.HasPrefix(broker, "tls://") || strings.HasPrefix(broker, "ssl://") {
		o.SetTLSConfig(common.TLSConfig(brokerHost(broker)))
	}
	o.SetOnConnectHandler(func(_ mqtt.Client) {
		m.logger.Infof("connected to %s", broker)
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logger.Warnf("connection to %s lost: %s", broker, err)
	})

	c := mqtt.NewClient(o)
	if t := c.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	m.pub = c
	return m, nil
}

// NewMQTT creates a presenter on top of an existing publisher.
func NewMQTT(pub Publisher, opts ...MQTTOption) *MQTT {
	m := &MQTT{
		pub:     pub,
		prefix:  defaultTopicPrefix,
		timeout: defaultPublishWait,
		logger:  common.NewLoggerFromEnv("mqtt", "IOTHUB_D2C_LOG_LEVEL"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Topic returns the topic records of the named partition are published to.
func (m *MQTT) Topic(partitionID string) string {
	return m.prefix + "/" + partitionID
}

// Present publishes the record and waits for the broker to acknowledge it.
func (m *MQTT) Present(rec *consumer.EventRecord, showProperties bool) {
	b, err := json.Marshal(NewDocument(rec, showProperties))
	if err != nil {
		m.logger.Errorf("encode record of partition %s: %s", rec.PartitionID(), err)
		return
	}
	t := m.pub.Publish(m.Topic(rec.PartitionID()), defaultQoS, false, b)
	if !t.WaitTimeout(m.timeout) {
		m.logger.Errorf("publish to %s timed out", m.Topic(rec.PartitionID()))
		return
	}
	if err = t.Error(); err != nil {
		m.logger.Errorf("publish to %s: %s", m.Topic(rec.PartitionID()), err)
	}
}

// Close disconnects from the broker if the connection is owned by the presenter.
func (m *MQTT) Close() error {
	if c, ok := m.pub.(mqtt.Client); ok && c.IsConnected() {
		c.Disconnect(disconnectQuiesceMs)
		m.logger.Debugf("disconnected")
	}
	return nil
}

func brokerHost(broker string) string {
	host := broker[strings.Index(broker, "://")+3:]
	if i := strings.LastIndexByte(host, ':'); i != -1 {
		host = host[:i]
	}
	return host
}
