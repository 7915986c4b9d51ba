package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/born-ml/lumen/internal/optvis"
	"github.com/born-ml/lumen/internal/optvis/param"
	"github.com/born-ml/lumen/internal/runstore"
	"github.com/born-ml/lumen/internal/tensor"
)

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	modelSpec := fs.String("model", "inception", "architecture name (convnet|inception) or a .lumen checkpoint")
	weights := fs.String("weights", "", "weights file loaded into the model (.lumen or .safetensors)")
	objectives := fs.String("objective", "", "comma-separated objective queue, e.g. mixed4a:7,mixed4b")
	steps := fs.Int("steps", 0, "optimize for this many steps (shorthand for -thresholds <n>)")
	thresholdsFlag := fs.String("thresholds", "", "comma-separated steps at which to snapshot (default 512)")
	size := fs.Int("size", 128, "edge length of the optimized image")
	seed := fs.Int64("seed", -1, "seed for reproducible runs (-1 picks one from the clock)")
	outDir := fs.String("out", ".", "directory for rendered images, named after each objective")
	save := fs.String("save", "", "explicit output path; queued renders get a numeric suffix")
	show := fs.Bool("show", false, "open each final image in the system viewer")
	inline := fs.Bool("inline", false, "print snapshots inline (24-bit color terminals)")
	runsDB := fs.String("runs-db", "", "sqlite database to archive run records in")
	verbose := fs.Bool("verbose", false, "log the loss at the start and at every threshold")
	progress := fs.Bool("progress", isatty.IsTerminal(os.Stdout.Fd()), "draw a progress bar")
	if err := fs.Parse(args); err != nil {
		return err
	}

	queue := splitQueue(*objectives)
	if len(queue) == 0 {
		return errors.New("at least one -objective is required")
	}
	thresholds, err := parseThresholds(*steps, *thresholdsFlag)
	if err != nil {
		return err
	}

	backend := newBackend()
	model, err := buildModel(*modelSpec, *weights, backend)
	if err != nil {
		return err
	}

	// Parse the whole queue up front so a typo in the last objective
	// does not waste the minutes spent rendering the first.
	parsed := make([]*optvis.Objective[Backend], len(queue))
	for i, spec := range queue {
		obj, err := optvis.As[Backend](spec)
		if err != nil {
			return err
		}
		parsed[i] = obj
	}

	var store *runstore.Store
	if *runsDB != "" {
		store = runstore.New(*runsDB)
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	for i, obj := range parsed {
		// Each render gets its own cancelation so that declining the
		// stop prompt leaves the rest of the queue runnable.
		renderCtx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-renderCtx.Done():
			}
		}()

		savePath := renderPath(*save, *outDir, queue[i], i, len(queue))

		var finalLoss float64
		opts := []optvis.Option[Backend]{
			optvis.WithThresholds[Backend](thresholds...),
			optvis.WithSave[Backend](savePath),
			optvis.WithShow[Backend](*show),
			optvis.WithInline[Backend](*inline),
			optvis.WithVerbose[Backend](*verbose),
			optvis.WithProgress[Backend](*progress),
		}
		if *seed >= 0 {
			opts = append(opts, optvis.WithSeed[Backend](*seed))
		}
		if *size != 128 {
			var paramOpts []param.Option
			if *seed >= 0 {
				paramOpts = append(paramOpts, param.WithSeed(*seed))
			}
			opts = append(opts, optvis.WithParam(param.Image(*size, backend, paramOpts...)))
		}

		started := time.Now()
		snapshots, renderErr := optvis.Render(renderCtx, backend, model, trackLoss(obj, &finalLoss), opts...)
		cancel()

		if store != nil && len(snapshots) > 0 {
			rec := runstore.Run{
				Model:      *modelSpec,
				Objective:  obj.Description(),
				Steps:      snapshots[len(snapshots)-1].Step,
				FinalLoss:  finalLoss,
				OutputPath: savePath,
				StartedAt:  started,
				Duration:   time.Since(started),
			}
			if _, err := store.Record(ctx, rec); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}

		if renderErr != nil {
			if errors.Is(renderErr, optvis.ErrCanceled) {
				if remaining := len(parsed) - i - 1; remaining > 0 {
					fmt.Printf("Stopping; %d queued render(s) abandoned.\n", remaining)
				}
				return nil
			}
			return renderErr
		}
		if savePath != "" {
			fmt.Printf("rendered %s -> %s\n", obj.Description(), savePath)
		}
	}
	return nil
}

// trackLoss wraps an objective so the loss of the last completed step
// survives the render, for archival.
func trackLoss(obj *optvis.Objective[Backend], out *float64) *optvis.Objective[Backend] {
	return optvis.Custom[Backend](obj.Description(), func(h *optvis.Hooks[Backend]) (*tensor.Tensor[float32, Backend], error) {
		v, err := obj.Evaluate(h)
		if err != nil {
			return nil, err
		}
		*out = -float64(v.Item())
		return v, nil
	})
}

func splitQueue(objectives string) []string {
	var out []string
	for _, part := range strings.Split(objectives, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseThresholds(steps int, list string) ([]int, error) {
	if steps > 0 && list != "" {
		return nil, errors.New("-steps and -thresholds are mutually exclusive")
	}
	if steps > 0 {
		return []int{steps}, nil
	}
	if list == "" {
		return []int{512}, nil
	}
	parts := strings.Split(list, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad threshold %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// renderPath picks the output file for one queue entry. An explicit
// -save wins, with a numeric suffix when several objectives share it;
// otherwise the objective spec is slugged into dir.
func renderPath(save, dir, spec string, idx, total int) string {
	if save != "" {
		if total == 1 {
			return save
		}
		ext := filepath.Ext(save)
		return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(save, ext), idx+1, ext)
	}
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, slug(spec)+".png")
}

// slug makes an objective spec safe to use as a file name.
func slug(spec string) string {
	var sb strings.Builder
	for _, r := range spec {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
