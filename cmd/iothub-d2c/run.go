package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amenzhinsky/iothub-d2c/common"
	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/amenzhinsky/iothub-d2c/eventhub"
	"github.com/amenzhinsky/iothub-d2c/kafkahub"
	"github.com/amenzhinsky/iothub-d2c/metrics"
	"github.com/amenzhinsky/iothub-d2c/present"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// errPartitionsFailed is returned when at least one partition stopped with an error.
var errPartitionsFailed = errors.New("some partitions failed")

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := common.NewZapLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Sync() //nolint:errcheck // stderr sync fails on some terminals

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"hubName", cfg.HubName,
		"consumerGroup", cfg.ConsumerGroup,
		"transport", cfg.Transport,
		"startPosition", cfg.StartPosition.String(),
		"batchSize", cfg.BatchSize,
		"maxWait", cfg.MaxWait,
		"showProperties", cfg.ShowProperties,
		"output", cfg.Output,
		"failFast", cfg.FailFast,
		"mqttBroker", cfg.MQTTBroker,
		"metricsAddr", cfg.MetricsAddr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, registry)
		errc := srv.Start()
		sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr)
		go func() {
			if err, ok := <-errc; ok {
				sugar.Errorw("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				sugar.Warnw("metrics server shutdown error", "error", err)
			}
		}()
	}

	// status lines must not corrupt the JSON stream
	status := io.Writer(os.Stdout)
	if cfg.Output == outputJSON {
		status = os.Stderr
	}

	presenter, closePresenter, err := newPresenter(cfg, os.Stdout, sugar)
	if err != nil {
		return fmt.Errorf("failed to create presenter: %w", err)
	}
	defer closePresenter()

	hub, closeHub, err := openHub(cfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to connect to the hub: %w", err)
	}
	defer closeHub()

	fmt.Fprintln(status, "IoT Hub - Read device to cloud messages. Ctrl-C to exit.")
	return consume(ctx, stop, hub, presenter, status, append(cfg.consumerOptions(),
		consumer.WithLogger(sugar),
		consumer.WithMetrics(m),
	)...)
}

// consume reads all hub partitions until ctx is done or every
// partition consumer has exited, then prints a summary to out.
//
// stop is called as soon as ctx is done so that a repeated
// interrupt kills the process while partitions are draining.
func consume(
	ctx context.Context,
	stop func(),
	hub consumer.Hub,
	presenter consumer.Presenter,
	out io.Writer,
	opts ...consumer.Option,
) error {
	sup, err := consumer.Start(ctx, hub, presenter, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Listening for messages on all partitions: %s.\n", strings.Join(sup.Partitions(), ", "))

	select {
	case <-ctx.Done():
		stop()
		fmt.Fprintln(out, "Exiting...")
		sup.Shutdown()
	case <-sup.Done():
	}

	res := sup.Join()
	if len(res.Failures) != 0 {
		fmt.Fprintf(out, "Partitions failed: %s\n", strings.Join(res.FailedPartitions(), ", "))
		for _, f := range res.Failures {
			fmt.Fprintf(out, "\t%s\n", f)
		}
	}
	fmt.Fprintln(out, "Cloud message reader finished.")
	if len(res.Failures) != 0 {
		return errPartitionsFailed
	}
	return nil
}

// openHub connects to the hub with the configured transport.
func openHub(cfg *Config, logger common.Logger) (consumer.Hub, func(), error) {
	switch cfg.Transport {
	case transportKafka:
		if cfg.ConsumerGroup != eventhub.DefaultConsumerGroup {
			logger.Warnf("consumer group %q is not used by the kafka transport", cfg.ConsumerGroup)
		}
		h, err := kafkahub.NewFromConnectionString(cfg.ConnectionString,
			kafkahub.WithTopic(cfg.HubName),
			kafkahub.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return h, closer(h, logger), nil
	default:
		c, err := eventhub.DialConnectionString(cfg.ConnectionString,
			eventhub.WithHubName(cfg.HubName),
			eventhub.WithConsumerGroup(cfg.ConsumerGroup),
			eventhub.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return c, closer(c, logger), nil
	}
}

// newPresenter creates the configured output, forwarding to
// the MQTT broker is added on top of it when enabled.
func newPresenter(cfg *Config, w io.Writer, logger common.Logger) (consumer.Presenter, func(), error) {
	var p consumer.Presenter
	switch cfg.Output {
	case outputJSON:
		p = present.NewJSON(w, present.WithCompact(cfg.Compact), present.WithJSONLogger(logger))
	default:
		p = present.NewConsole(w)
	}
	if cfg.MQTTBroker == "" {
		return p, func() {}, nil
	}

	id := cfg.MQTTClientID
	if id == "" {
		id = "iothub-d2c-" + uuid.NewString()
	}
	m, err := present.DialMQTT(cfg.MQTTBroker, id,
		present.WithTopicPrefix(cfg.MQTTTopic),
		present.WithMQTTLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return present.Multi{p, m}, closer(m, logger), nil
}

func closer(c io.Closer, logger common.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warnf("close error: %s", err)
		}
	}
}
