package main

import (
	"github.com/amenzhinsky/iothub-d2c/cmd/internal"
	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/amenzhinsky/iothub-d2c/eventhub"
	"github.com/urfave/cli/v2"
)

const (
	transportAMQP  = "amqp"
	transportKafka = "kafka"

	outputText = "text"
	outputJSON = "json"
)

// runFlags returns all flags of the reader, every one of them
// can be set through its environment variable.
func runFlags() []cli.Flag {
	transport := internal.NewChoiceFlag(transportAMQP, transportKafka)
	output := internal.NewChoiceFlag(outputText, outputJSON)
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"D2C_VERBOSE"},
		},
		&cli.StringFlag{
			Name:     "connection-string",
			Aliases:  []string{"c"},
			Usage:    "Event hub compatible endpoint connection string",
			EnvVars:  []string{"EVENTHUB_CONNECTION_STRING"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "hub-name",
			Usage:   "Event hub compatible name, overrides EntityPath of the connection string",
			EnvVars: []string{"EVENTHUB_NAME"},
		},
		&cli.StringFlag{
			Name:    "consumer-group",
			Aliases: []string{"g"},
			Usage:   "Consumer group partitions are read through",
			EnvVars: []string{"EVENTHUB_CONSUMER_GROUP"},
			Value:   eventhub.DefaultConsumerGroup,
		},
		&cli.GenericFlag{
			Name:    "transport",
			Usage:   transport.Usage("Protocol used to reach the hub"),
			EnvVars: []string{"D2C_TRANSPORT"},
			Value:   transport,
		},
		&cli.StringFlag{
			Name:    "start-position",
			Usage:   "Where to start reading: latest, earliest or an RFC3339 enqueued time",
			EnvVars: []string{"D2C_START_POSITION"},
			Value:   "latest",
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Maximum number of events received at once per partition",
			EnvVars: []string{"D2C_BATCH_SIZE"},
			Value:   consumer.DefaultBatchSize,
		},
		&cli.DurationFlag{
			Name:    "max-wait",
			Usage:   "How long a single receive call waits for events",
			EnvVars: []string{"D2C_MAX_WAIT"},
			Value:   consumer.DefaultMaxWait,
		},
		&cli.BoolFlag{
			Name:    "show-properties",
			Aliases: []string{"p"},
			Usage:   "Print application and system properties of every message",
			EnvVars: []string{"D2C_SHOW_PROPERTIES"},
		},
		&cli.GenericFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   output.Usage("Output format"),
			EnvVars: []string{"D2C_OUTPUT"},
			Value:   output,
		},
		&cli.BoolFlag{
			Name:    "compact",
			Usage:   "Print one JSON document per line",
			EnvVars: []string{"D2C_COMPACT"},
		},
		&cli.BoolFlag{
			Name:    "fail-fast",
			Usage:   "Stop all partitions as soon as one of them fails",
			EnvVars: []string{"D2C_FAIL_FAST"},
		},
		&cli.StringFlag{
			Name:    "mqtt-broker",
			Usage:   "Forward messages to this MQTT broker, e.g. tcp://localhost:1883",
			EnvVars: []string{"D2C_MQTT_BROKER"},
		},
		&cli.StringFlag{
			Name:    "mqtt-topic",
			Usage:   "Topic prefix forwarded messages are published under",
			EnvVars: []string{"D2C_MQTT_TOPIC"},
			Value:   "iothub/d2c",
		},
		&cli.StringFlag{
			Name:    "mqtt-client-id",
			Usage:   "MQTT client id, random when empty",
			EnvVars: []string{"D2C_MQTT_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Serve prometheus metrics on this address, disabled when empty",
			EnvVars: []string{"D2C_METRICS_ADDR"},
		},
	}
}
