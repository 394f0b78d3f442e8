package main

import (
	"testing"
	"time"

	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testConnectionString = "Endpoint=sb://namespace.servicebus.windows.net/;" +
	"SharedAccessKeyName=service;SharedAccessKey=abcNg==;EntityPath=hub"

// parseConfig runs the flags through a cli app and returns the built config.
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	var (
		cfg *Config
		err error
	)
	app := &cli.App{
		Name:  "iothub-d2c",
		Flags: runFlags(),
		Action: func(c *cli.Context) error {
			cfg, err = buildConfig(c)
			return nil
		},
	}
	if rerr := app.Run(append([]string{"iothub-d2c"}, args...)); rerr != nil {
		return nil, rerr
	}
	return cfg, err
}

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t, "--connection-string", testConnectionString)
	require.NoError(t, err)
	require.Equal(t, testConnectionString, cfg.ConnectionString)
	require.Equal(t, "$Default", cfg.ConsumerGroup)
	require.Equal(t, transportAMQP, cfg.Transport)
	require.Equal(t, outputText, cfg.Output)
	require.Equal(t, consumer.PositionLatest, cfg.StartPosition.Kind())
	require.Equal(t, consumer.DefaultBatchSize, cfg.BatchSize)
	require.Equal(t, consumer.DefaultMaxWait, cfg.MaxWait)
	require.False(t, cfg.ShowProperties)
	require.False(t, cfg.FailFast)
	require.Empty(t, cfg.MetricsAddr)
	require.Len(t, cfg.consumerOptions(), 5)
}

func TestBuildConfigFlags(t *testing.T) {
	cfg, err := parseConfig(t,
		"-c", testConnectionString,
		"--transport", "KAFKA",
		"-o", "json",
		"-p",
		"--fail-fast",
		"--batch-size", "10",
		"--max-wait", "250ms",
		"--start-position", "2024-05-06T07:08:09Z",
		"--consumer-group", "readers",
	)
	require.NoError(t, err)
	require.Equal(t, transportKafka, cfg.Transport)
	require.Equal(t, outputJSON, cfg.Output)
	require.True(t, cfg.ShowProperties)
	require.True(t, cfg.FailFast)
	require.Equal(t, 10, cfg.BatchSize)
	require.Equal(t, 250*time.Millisecond, cfg.MaxWait)
	require.Equal(t, "readers", cfg.ConsumerGroup)
	require.Equal(t, consumer.PositionEnqueuedTime, cfg.StartPosition.Kind())
	require.True(t, cfg.StartPosition.Time().Equal(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)))
}

func TestBuildConfigEnv(t *testing.T) {
	t.Setenv("EVENTHUB_CONNECTION_STRING", testConnectionString)
	t.Setenv("EVENTHUB_NAME", "other-hub")
	t.Setenv("D2C_SHOW_PROPERTIES", "true")
	t.Setenv("D2C_START_POSITION", "earliest")
	t.Setenv("D2C_METRICS_ADDR", "127.0.0.1:9100")

	cfg, err := parseConfig(t)
	require.NoError(t, err)
	require.Equal(t, "other-hub", cfg.HubName)
	require.True(t, cfg.ShowProperties)
	require.Equal(t, consumer.PositionEarliest, cfg.StartPosition.Kind())
	require.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
}

func TestBuildConfigErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-c", testConnectionString, "--batch-size", "0"},
		{"-c", testConnectionString, "--max-wait", "-1s"},
		{"-c", testConnectionString, "--start-position", "yesterday"},
		{"-c", testConnectionString, "--transport", "mqtt"},
		{"-c", testConnectionString, "--output", "xml"},
		{},
	} {
		_, err := parseConfig(t, args...)
		require.Error(t, err, "args: %v", args)
	}
}
