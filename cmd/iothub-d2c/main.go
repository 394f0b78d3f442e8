package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const usage = `Reads device-to-cloud messages from every partition of an IoT hub.
The built-in event hub compatible endpoint connection string is required.`

func main() {
	app := &cli.App{
		Name:   "iothub-d2c",
		Usage:  usage,
		Flags:  runFlags(),
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		// the summary of failed partitions is already printed
		if !errors.Is(err, errPartitionsFailed) {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}
