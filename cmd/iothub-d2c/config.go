package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/urfave/cli/v2"
)

// Config holds all configuration of the reader.
type Config struct {
	Verbose bool

	// hub settings
	ConnectionString string
	HubName          string
	ConsumerGroup    string
	Transport        string

	// consumer settings
	StartPosition  consumer.Position
	BatchSize      int
	MaxWait        time.Duration
	ShowProperties bool
	FailFast       bool

	// output settings
	Output       string
	Compact      bool
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	MetricsAddr string
}

// buildConfig builds a Config from CLI context flags.
func buildConfig(c *cli.Context) (*Config, error) {
	pos, err := consumer.ParsePosition(c.String("start-position"))
	if err != nil {
		return nil, fmt.Errorf("start-position: %w", err)
	}
	cfg := &Config{
		Verbose:          c.Bool("verbose"),
		ConnectionString: c.String("connection-string"),
		HubName:          c.String("hub-name"),
		ConsumerGroup:    c.String("consumer-group"),
		Transport:        c.String("transport"),
		StartPosition:    pos,
		BatchSize:        c.Int("batch-size"),
		MaxWait:          c.Duration("max-wait"),
		ShowProperties:   c.Bool("show-properties"),
		FailFast:         c.Bool("fail-fast"),
		Output:           c.String("output"),
		Compact:          c.Bool("compact"),
		MQTTBroker:       c.String("mqtt-broker"),
		MQTTTopic:        c.String("mqtt-topic"),
		MQTTClientID:     c.String("mqtt-client-id"),
		MetricsAddr:      c.String("metrics-addr"),
	}
	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ConnectionString == "" {
		return errors.New("connection-string is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", c.BatchSize)
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("max-wait must be positive, got %s", c.MaxWait)
	}
	switch c.Transport {
	case transportAMQP, transportKafka:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.Output {
	case outputText, outputJSON:
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	return nil
}

// consumerOptions converts the configuration into supervisor options.
func (c *Config) consumerOptions() []consumer.Option {
	return []consumer.Option{
		consumer.WithShowProperties(c.ShowProperties),
		consumer.WithBatchSize(c.BatchSize),
		consumer.WithMaxWait(c.MaxWait),
		consumer.WithStartPosition(c.StartPosition),
		consumer.WithFailFast(c.FailFast),
	}
}
