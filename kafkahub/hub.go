// Package kafkahub reads hub partitions through the Kafka compatible
// endpoint of Event Hubs, or any Kafka cluster.
package kafkahub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/amenzhinsky/iothub-d2c/common"
	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/amenzhinsky/iothub-d2c/eventhub"
)

// kafkaPort is the port of the Event Hubs Kafka endpoint.
const kafkaPort = "9093"

// OffsetResolver looks up partition offsets by time, sarama.Client implements it.
type OffsetResolver interface {
	GetOffset(topic string, partitionID int32, time int64) (int64, error)
}

// Option is a hub configuration option.
type Option func(h *Hub)

// WithLogger sets the logger.
func WithLogger(l common.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// WithTopic overrides the topic name taken from the connection string.
func WithTopic(topic string) Option {
	return func(h *Hub) {
		if topic != "" {
			h.topic = topic
		}
	}
}

// Hub is a consumer.Hub backed by a sarama consumer.
type Hub struct {
	client   sarama.Client
	consumer sarama.Consumer
	offsets  OffsetResolver
	topic    string
	logger   common.Logger
}

var _ consumer.Hub = (*Hub)(nil)

// NewConfig returns a sarama configuration for the Event Hubs Kafka
// endpoint authenticated with the given connection string.
func NewConfig(cs, host string) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = "iothub-d2c"
	c.Version = sarama.V1_0_0_0
	c.Consumer.Return.Errors = true
	c.Net.TLS.Enable = true
	c.Net.TLS.Config = common.TLSConfig(host)
	c.Net.SASL.Enable = true
	c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	c.Net.SASL.User = "$ConnectionString"
	c.Net.SASL.Password = cs
	return c
}

// NewFromConnectionString connects to the Kafka endpoint of the namespace
// in the event hub connection string, the topic is the hub name.
func NewFromConnectionString(cs string, opts ...Option) (*Hub, error) {
	creds, err := eventhub.ParseConnectionString(cs)
	if err != nil {
		return nil, &consumer.ConnectionError{Err: err}
	}
	host := creds.Endpoint
	if i := strings.IndexByte(host, ':'); i != -1 {
		host = host[:i]
	}
	return New([]string{host + ":" + kafkaPort}, creds.EntityPath, NewConfig(cs, host), opts...)
}

// New connects to the given brokers and reads the named topic.
func New(brokers []string, topic string, config *sarama.Config, opts ...Option) (*Hub, error) {
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return nil, &consumer.ConnectionError{Err: err}
	}
	c, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, &consumer.ConnectionError{Err: err}
	}
	h := NewFromConsumer(c, client, topic, opts...)
	h.client = client
	if h.topic == "" {
		_ = h.Close()
		return nil, &consumer.ConnectionError{Err: errors.New("topic name is empty")}
	}
	return h, nil
}

// NewFromConsumer wraps an existing consumer, offsets may be nil
// in which case enqueued time positions are not supported.
func NewFromConsumer(c sarama.Consumer, offsets OffsetResolver, topic string, opts ...Option) *Hub {
	h := &Hub{
		consumer: c,
		offsets:  offsets,
		topic:    topic,
		logger:   common.NewLoggerFromEnv("kafkahub", "KAFKAHUB_LOG_LEVEL"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Topic returns the consumed topic.
func (h *Hub) Topic() string {
	return h.topic
}

// PartitionIDs returns topic partitions as decimal strings.
func (h *Hub) PartitionIDs(ctx context.Context) ([]string, error) {
	ps, err := h.consumer.Partitions(h.topic)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, strconv.FormatInt(int64(p), 10))
	}
	return ids, nil
}

// OpenPartition starts a partition consumer at the handle's position.
func (h *Hub) OpenPartition(
	ctx context.Context,
	hd consumer.PartitionHandle,
	prefetch int,
) (consumer.PartitionReceiver, error) {
	p, err := strconv.ParseInt(hd.PartitionID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("malformed partition id %q: %w", hd.PartitionID, err)
	}
	offset, err := h.offset(int32(p), hd.Position)
	if err != nil {
		return nil, err
	}
	pc, err := h.consumer.ConsumePartition(h.topic, int32(p), offset)
	if err != nil {
		return nil, err
	}
	h.logger.Debugf("consuming partition %d of %s from offset %d", p, h.topic, offset)
	return &receiver{pc: pc}, nil
}

func (h *Hub) offset(partition int32, pos consumer.Position) (int64, error) {
	switch pos.Kind() {
	case consumer.PositionEarliest:
		return sarama.OffsetOldest, nil
	case consumer.PositionEnqueuedTime:
		if h.offsets == nil {
			return 0, errors.New("enqueued time positions are not supported")
		}
		off, err := h.offsets.GetOffset(h.topic, partition, pos.Time().UnixMilli())
		if err != nil {
			return 0, err
		}
		// no messages after the given time yet
		if off == -1 {
			return sarama.OffsetNewest, nil
		}
		return off, nil
	default:
		return sarama.OffsetNewest, nil
	}
}

// Close closes the consumer and the underlying client.
func (h *Hub) Close() error {
	err := h.consumer.Close()
	if h.client != nil {
		if cerr := h.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type receiver struct {
	pc sarama.PartitionConsumer
}

func (r *receiver) ReceiveBatch(ctx context.Context, max int, wait time.Duration) ([]*consumer.RawEvent, error) {
	t := time.NewTimer(wait)
	defer t.Stop()

	var events []*consumer.RawEvent
	select {
	case msg, ok := <-r.pc.Messages():
		if !ok {
			return nil, errors.New("partition consumer is closed")
		}
		events = append(events, FromConsumerMessage(msg))
	case err, ok := <-r.pc.Errors():
		if !ok {
			return nil, errors.New("partition consumer is closed")
		}
		return nil, err
	case <-t.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// take whatever is already buffered without waiting
	for len(events) < max {
		select {
		case msg, ok := <-r.pc.Messages():
			if !ok {
				return events, nil
			}
			events = append(events, FromConsumerMessage(msg))
		default:
			return events, nil
		}
	}
	return events, nil
}

func (r *receiver) Close() error {
	return r.pc.Close()
}

// FromConsumerMessage converts a kafka message into a raw event,
// record headers become application properties.
func FromConsumerMessage(msg *sarama.ConsumerMessage) *consumer.RawEvent {
	ev := &consumer.RawEvent{
		Body:         msg.Value,
		EnqueuedTime: msg.Timestamp,
	}
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		ev.ApplicationProperties = append(ev.ApplicationProperties, consumer.Property{
			Name:  string(h.Key),
			Value: string(h.Value),
		})
	}
	ev.SystemProperties = consumer.Properties{
		{Name: "x-opt-offset", Value: msg.Offset},
	}
	if len(msg.Key) != 0 {
		ev.SystemProperties = append(ev.SystemProperties, consumer.Property{
			Name: "x-opt-partition-key", Value: string(msg.Key),
		})
	}
	if !msg.Timestamp.IsZero() {
		ev.SystemProperties = append(ev.SystemProperties, consumer.Property{
			Name: "x-opt-enqueued-time", Value: msg.Timestamp,
		})
	}
	return ev
}
