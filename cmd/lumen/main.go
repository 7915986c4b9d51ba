// Command lumen renders feature visualizations: it optimizes an input
// image until it maximally excites a chosen layer, channel, or neuron
// of a convolutional network.
package main

import (
	"context"
	"fmt"
	"os"
)

const version = "v0.1.0"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "render":
		return runRender(ctx, args[1:])
	case "layers":
		return runLayers(ctx, args[1:])
	case "train-demo":
		return runTrainDemo(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "version":
		fmt.Println("lumen " + version)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: lumen <render|layers|train-demo|runs|version> [flags]", msg)
}
