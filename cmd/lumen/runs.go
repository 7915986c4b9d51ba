package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/lumen/internal/runstore"
)

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("runs-db", "lumen-runs.db", "sqlite database with archived runs")
	limit := fs.Int("limit", 20, "max runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	store := runstore.New(*dbPath)
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	if len(runs) > *limit {
		runs = runs[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tMODEL\tOBJECTIVE\tSTEPS\tLOSS\tTOOK\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\t%s\t%s\n",
			shortID(r.ID), humanize.Time(r.StartedAt), r.Model, r.Objective,
			r.Steps, r.FinalLoss, r.Duration.Round(10*time.Millisecond), r.OutputPath)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
