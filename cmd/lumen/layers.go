package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/lumen/internal/zoo"
)

func runLayers(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("layers", flag.ContinueOnError)
	modelSpec := fs.String("model", "inception", "architecture name (convnet|inception) or a .lumen checkpoint")
	weights := fs.String("weights", "", "weights file loaded into the model (.lumen or .safetensors)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend := newBackend()
	model, err := buildModel(*modelSpec, *weights, backend)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tKIND\tPARAMS")
	for _, layer := range zoo.Describe(model) {
		params := "-"
		if layer.Params > 0 {
			params = humanize.Comma(int64(layer.Params))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", layer.Path, layer.Kind, params)
	}
	return w.Flush()
}
