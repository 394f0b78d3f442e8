package eventhub

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amenzhinsky/iothub-d2c/common"
	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/google/uuid"
	"pack.ag/amqp"
)

// DefaultConsumerGroup is the consumer group every hub has.
const DefaultConsumerGroup = "$Default"

type Option func(c *Client)

// WithTLSConfig overrides the default TLS configuration trusting azure root CAs.
func WithTLSConfig(tc *tls.Config) Option {
	return func(c *Client) {
		c.tls = tc
	}
}

func WithSASLPlain(username, password string) Option {
	return WithConnOption(amqp.ConnSASLPlain(username, password))
}

func WithConnOption(opt amqp.ConnOption) Option {
	return func(c *Client) {
		c.opts = append(c.opts, opt)
	}
}

func WithLogger(l common.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithConsumerGroup sets the consumer group partitions are read through.
func WithConsumerGroup(group string) Option {
	return func(c *Client) {
		if group != "" {
			c.group = group
		}
	}
}

// WithHubName sets the hub name, it overrides connection string's EntityPath.
func WithHubName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// DialConnectionString connects to the hub described by the connection string,
// the hub name is taken from EntityPath unless WithHubName is given.
func DialConnectionString(cs string, opts ...Option) (*Client, error) {
	creds, err := ParseConnectionString(cs)
	if err != nil {
		return nil, &consumer.ConnectionError{Err: err}
	}
	return Dial(creds.Endpoint, creds.EntityPath, append([]Option{
		WithSASLPlain(creds.SharedAccessKeyName, creds.SharedAccessKey),
	}, opts...)...)
}

// Dial connects to the named amqp broker and returns an eventhub client.
//
// Errors are returned as *consumer.ConnectionError.
func Dial(host, name string, opts ...Option) (*Client, error) {
	c := &Client{
		name:   name,
		group:  DefaultConsumerGroup,
		logger: common.NewLoggerFromEnv("eventhub", "EVENTHUB_LOG_LEVEL"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.name == "" {
		return nil, &consumer.ConnectionError{Err: errors.New("hub name is empty")}
	}
	if c.tls == nil {
		c.tls = common.TLSConfig(host)
	}

	var err error
	c.conn, err = amqp.Dial("amqps://"+host, append(c.opts, amqp.ConnTLSConfig(c.tls))...)
	if err != nil {
		return nil, &consumer.ConnectionError{Err: err}
	}
	c.sess, err = c.conn.NewSession()
	if err != nil {
		_ = c.conn.Close()
		return nil, &consumer.ConnectionError{Err: err}
	}
	c.logger.Debugf("connected to %s/%s", host, c.name)
	return c, nil
}

// Client is eventhub client.
type Client struct {
	mu     sync.Mutex
	conn   *amqp.Client
	opts   []amqp.ConnOption
	tls    *tls.Config
	sess   *amqp.Session
	name   string
	group  string
	closed bool
	logger common.Logger
}

// make sure the client can be consumed by the supervisor.
var _ consumer.Hub = (*Client)(nil)

// Name returns the hub name.
func (c *Client) Name() string {
	return c.name
}

// ConsumerGroup returns the consumer group partitions are read through.
func (c *Client) ConsumerGroup() string {
	return c.group
}

// PartitionIDs returns partition ids of the hub.
func (c *Client) PartitionIDs(ctx context.Context) ([]string, error) {
	return getPartitionIDs(ctx, c.sess, c.name)
}

// OpenPartition opens a receiver on the handle's partition starting at its position.
func (c *Client) OpenPartition(
	ctx context.Context,
	h consumer.PartitionHandle,
	prefetch int,
) (consumer.PartitionReceiver, error) {
	opts := []amqp.LinkOption{
		amqp.LinkSourceAddress(partitionAddress(c.name, c.group, h.PartitionID)),
		amqp.LinkSelectorFilter(selectorFilter(h.Position)),
	}
	if prefetch > 0 {
		opts = append(opts, amqp.LinkCredit(uint32(prefetch)))
	}
	recv, err := c.sess.NewReceiver(opts...)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("created receiver on partition %s", h.PartitionID)
	return newReceiver(recv), nil
}

// Close closes amqp session and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.sess.Close(context.Background()); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}

func partitionAddress(name, group, id string) string {
	return fmt.Sprintf("/%s/ConsumerGroups/%s/Partitions/%s", name, group, id)
}

// selectorFilter returns the link filter expression for the given position,
// latest is resolved by the broker.
func selectorFilter(p consumer.Position) string {
	switch p.Kind() {
	case consumer.PositionEarliest:
		return "amqp.annotation.x-opt-offset > '-1'"
	case consumer.PositionEnqueuedTime:
		return fmt.Sprintf("amqp.annotation.x-opt-enqueued-time > '%d'",
			p.Time().UnixNano()/int64(time.Millisecond),
		)
	default:
		return "amqp.annotation.x-opt-offset > '@latest'"
	}
}

// getPartitionIDs returns partition ids for the named eventhub.
func getPartitionIDs(ctx context.Context, sess *amqp.Session, name string) ([]string, error) {
	replyTo := uuid.NewString()
	recv, err := sess.NewReceiver(
		amqp.LinkSourceAddress("$management"),
		amqp.LinkTargetAddress(replyTo),
	)
	if err != nil {
		return nil, err
	}
	defer recv.Close(context.Background())

	send, err := sess.NewSender(
		amqp.LinkTargetAddress("$management"),
		amqp.LinkSourceAddress(replyTo),
	)
	if err != nil {
		return nil, err
	}
	defer send.Close(context.Background())

	mid := uuid.NewString()
	if err := send.Send(ctx, &amqp.Message{
		Properties: &amqp.MessageProperties{
			MessageID: mid,
			ReplyTo:   replyTo,
		},
		ApplicationProperties: map[string]interface{}{
			"operation": "READ",
			"name":      name,
			"type":      "com.microsoft:eventhub",
		},
	}); err != nil {
		return nil, err
	}

	msg, err := recv.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if err = msg.Accept(); err != nil {
		return nil, err
	}
	return parsePartitionIDs(msg, mid)
}

func parsePartitionIDs(msg *amqp.Message, mid string) ([]string, error) {
	if err := checkMessageResponse(msg); err != nil {
		return nil, err
	}
	if msg.Properties == nil || msg.Properties.CorrelationID != mid {
		return nil, errors.New("message-id mismatch")
	}

	val, ok := msg.Value.(map[string]interface{})
	if !ok {
		return nil, errors.New("unable to typecast value")
	}
	ids, ok := val["partition_ids"].([]string)
	if !ok {
		return nil, errors.New("unable to typecast partition_ids")
	}
	return ids, nil
}

// checkMessageResponse checks for 200 response code otherwise returns an error.
func checkMessageResponse(msg *amqp.Message) error {
	rc, ok := msg.ApplicationProperties["status-code"].(int32)
	if !ok {
		return errors.New("unable to typecast status-code")
	}
	if rc == 200 {
		return nil
	}
	rd, _ := msg.ApplicationProperties["status-description"].(string)
	return fmt.Errorf("code = %d, description = %q", rc, rd)
}
