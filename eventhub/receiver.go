package eventhub

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amenzhinsky/iothub-d2c/consumer"
	"pack.ag/amqp"
)

// drainWait is how long a batch keeps collecting messages
// that are already in flight after the first one arrived.
const drainWait = 20 * time.Millisecond

// link is the part of *amqp.Receiver a partition receiver reads from.
type link interface {
	Receive(ctx context.Context) (*amqp.Message, error)
	Close(ctx context.Context) error
}

type receiver struct {
	link   link
	accept func(msg *amqp.Message) error
}

func newReceiver(l link) *receiver {
	return &receiver{link: l, accept: (*amqp.Message).Accept}
}

func (r *receiver) ReceiveBatch(ctx context.Context, max int, wait time.Duration) ([]*consumer.RawEvent, error) {
	var events []*consumer.RawEvent
	for limit := wait; len(events) < max; limit = drainWait {
		msg, err := r.receive(ctx, limit)
		if err != nil {
			return events, err
		}
		if msg == nil {
			return events, nil
		}
		if err = r.accept(msg); err != nil {
			return events, err
		}
		events = append(events, FromAMQPMessage(msg))
	}
	return events, nil
}

// receive waits up to d for a message, nil message with
// nil error means nothing arrived in time.
func (r *receiver) receive(ctx context.Context, d time.Duration) (*amqp.Message, error) {
	rctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	msg, err := r.link.Receive(rctx)
	if err == nil {
		return msg, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if rctx.Err() != nil {
		return nil, nil
	}
	return nil, err
}

func (r *receiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.link.Close(ctx)
}

const (
	annotationEnqueuedTime       = "x-opt-enqueued-time"
	annotationIoTHubEnqueuedTime = "iothub-enqueuedtime"
)

// FromAMQPMessage converts an amqp message into a raw event.
//
// Application properties are sorted by name, system properties are message
// annotations sorted by name followed by the standard amqp message properties.
func FromAMQPMessage(msg *amqp.Message) *consumer.RawEvent {
	ev := &consumer.RawEvent{
		Body: messageBody(msg),
	}

	keys := make([]string, 0, len(msg.ApplicationProperties))
	for k := range msg.ApplicationProperties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.ApplicationProperties = append(ev.ApplicationProperties, consumer.Property{
			Name:  k,
			Value: msg.ApplicationProperties[k],
		})
	}

	annotations := make(map[string]interface{}, len(msg.Annotations))
	keys = keys[:0]
	for k, v := range msg.Annotations {
		s := fmt.Sprint(k)
		annotations[s] = v
		keys = append(keys, s)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.SystemProperties = append(ev.SystemProperties, consumer.Property{Name: k, Value: annotations[k]})
	}
	for _, k := range []string{annotationEnqueuedTime, annotationIoTHubEnqueuedTime} {
		if t, ok := annotations[k].(time.Time); ok {
			ev.EnqueuedTime = t
			break
		}
	}

	if p := msg.Properties; p != nil {
		add := func(name string, v interface{}) {
			ev.SystemProperties = append(ev.SystemProperties, consumer.Property{Name: name, Value: v})
		}
		if p.MessageID != nil {
			add("message-id", p.MessageID)
		}
		if p.CorrelationID != nil {
			add("correlation-id", p.CorrelationID)
		}
		if len(p.UserID) != 0 {
			add("user-id", string(p.UserID))
		}
		if p.To != "" {
			add("to", p.To)
		}
		if p.Subject != "" {
			add("subject", p.Subject)
		}
		if !p.CreationTime.IsZero() {
			add("creation-time", p.CreationTime)
		}
		if !p.AbsoluteExpiryTime.IsZero() {
			add("absolute-expiry-time", p.AbsoluteExpiryTime)
		}
	}
	return ev
}

func messageBody(msg *amqp.Message) []byte {
	if len(msg.Data) != 0 {
		return bytes.Join(msg.Data, nil)
	}
	switch v := msg.Value.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return []byte(fmt.Sprint(v))
	}
}
