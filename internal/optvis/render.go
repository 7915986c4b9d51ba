// Package optvis renders images that maximize activations inside a
// neural network.
//
// A render run hooks a model's layers, parameterizes an input image,
// and optimizes the image so an objective computed from the captured
// activations grows. The building blocks (hooks, objectives,
// parameterizations, transforms) are exposed so callers can compose
// their own runs; Render wires them together with the defaults that
// work well in practice.
package optvis

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/imageio"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/optim"
	"github.com/born-ml/lumen/internal/optvis/param"
	"github.com/born-ml/lumen/internal/optvis/transform"
	"github.com/born-ml/lumen/internal/tensor"
)

// Preprocessor lets a model supply the input transform it was trained
// with. When a model implements it, Render appends the returned
// transform instead of the default ImageNet normalization.
type Preprocessor[B tensor.Backend] interface {
	Preprocess() transform.Transform[B]
}

type config[B autodiff.BackwardCapable] struct {
	param         *param.Parameterization[B]
	optimizer     func(params []*nn.Parameter[B]) optim.Optimizer
	transforms    []transform.Transform[B]
	hasTransforms bool
	thresholds    []int
	fixedSize     int
	seed          int64
	hasSeed       bool
	preprocess    bool
	preprocessFn  transform.Transform[B]
	verbose       bool
	progress      bool
	show          bool
	inline        bool
	savePath      string
	out           io.Writer
	in            io.Reader
}

// Option configures a render run.
type Option[B autodiff.BackwardCapable] func(*config[B])

// WithParam replaces the default 128x128 pixel parameterization.
func WithParam[B autodiff.BackwardCapable](p *param.Parameterization[B]) Option[B] {
	return func(c *config[B]) { c.param = p }
}

// WithOptimizer replaces the default Adam optimizer. The factory
// receives the parameterization's parameters.
func WithOptimizer[B autodiff.BackwardCapable](factory func(params []*nn.Parameter[B]) optim.Optimizer) Option[B] {
	return func(c *config[B]) { c.optimizer = factory }
}

// WithTransforms replaces the standard robustness transforms. Passing
// no transforms disables them entirely; preprocessing and resizing are
// still appended according to the other options.
func WithTransforms[B autodiff.BackwardCapable](transforms ...transform.Transform[B]) Option[B] {
	return func(c *config[B]) {
		c.transforms = append([]transform.Transform[B](nil), transforms...)
		c.hasTransforms = true
	}
}

// WithThresholds sets the steps at which snapshots are taken. The run
// ends at the largest threshold. Duplicates are dropped and the list is
// sorted, so WithThresholds(512, 1, 128) snapshots at 1, 128 and 512.
func WithThresholds[B autodiff.BackwardCapable](steps ...int) Option[B] {
	return func(c *config[B]) { c.thresholds = append([]int(nil), steps...) }
}

// WithFixedImageSize resizes the transformed image to size x size just
// before the model sees it, overriding the default rule that upsamples
// images smaller than 224.
func WithFixedImageSize[B autodiff.BackwardCapable](size int) Option[B] {
	return func(c *config[B]) { c.fixedSize = size }
}

// WithSeed makes the run deterministic: it seeds the transform
// randomness and, when the default parameterization is used, the
// initial image buffer.
func WithSeed[B autodiff.BackwardCapable](seed int64) Option[B] {
	return func(c *config[B]) {
		c.seed = seed
		c.hasSeed = true
	}
}

// WithPreprocess controls whether a model-specific (or ImageNet
// default) preprocessing transform is appended. Enabled by default.
func WithPreprocess[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return func(c *config[B]) { c.preprocess = enabled }
}

// WithPreprocessFn supplies the normalization applied just before the
// model sees the image, taking precedence over the model's own
// Preprocessor and the ImageNet default. It has no effect when
// preprocessing is disabled.
func WithPreprocessFn[B autodiff.BackwardCapable](fn transform.Transform[B]) Option[B] {
	return func(c *config[B]) { c.preprocessFn = fn }
}

// WithVerbose prints the initial loss before optimizing and the loss at
// every threshold.
func WithVerbose[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return func(c *config[B]) { c.verbose = enabled }
}

// WithProgress controls the progress bar drawn over the optimization
// steps. Enabled by default.
func WithProgress[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return func(c *config[B]) { c.progress = enabled }
}

// WithShow controls opening the final image in the system viewer after
// the run. Enabled by default.
func WithShow[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return func(c *config[B]) { c.show = enabled }
}

// WithInline prints an ANSI preview of each snapshot to the output
// writer.
func WithInline[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return func(c *config[B]) { c.inline = enabled }
}

// WithSave writes the final snapshot to path (PNG unless the extension
// says otherwise). Batches are saved as a single montage.
func WithSave[B autodiff.BackwardCapable](path string) Option[B] {
	return func(c *config[B]) { c.savePath = path }
}

// WithOutput redirects run output (verbose prints, warnings, progress,
// the interrupt prompt). Defaults to os.Stdout.
func WithOutput[B autodiff.BackwardCapable](w io.Writer) Option[B] {
	return func(c *config[B]) { c.out = w }
}

// WithInput sets where the interrupt prompt reads its answer from.
// Defaults to os.Stdin.
func WithInput[B autodiff.BackwardCapable](r io.Reader) Option[B] {
	return func(c *config[B]) { c.in = r }
}

// Render optimizes an image to maximize objective on model and returns
// a snapshot per threshold.
//
// The objective accepts the forms understood by As: an *Objective, a
// "layer" or "layer:channel" string, or a custom objective function.
// Cancelling ctx stops the run after the current step, takes a final
// snapshot, and asks on interactive terminals whether queued renders
// should stop too; a confirmed stop returns an error wrapping
// ErrCanceled alongside the snapshots taken so far.
//
// Render drives the backend's gradient tape for the whole run, so the
// caller must not be recording when calling it.
func Render[B autodiff.BackwardCapable](
	ctx context.Context,
	backend B,
	model nn.Module[B],
	objective any,
	opts ...Option[B],
) ([]Snapshot, error) {
	cfg := config[B]{
		thresholds: []int{512},
		preprocess: true,
		progress:   true,
		show:       true,
		out:        os.Stdout,
		in:         os.Stdin,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	thresholds, err := normalizeThresholds(cfg.thresholds)
	if err != nil {
		return nil, err
	}
	maxStep := thresholds[len(thresholds)-1]
	isThreshold := make(map[int]bool, len(thresholds))
	for _, t := range thresholds {
		isThreshold[t] = true
	}

	seed := cfg.seed
	if !cfg.hasSeed {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // math/rand suffices for image jitter

	p := cfg.param
	if p == nil {
		paramOpts := []param.Option{}
		if cfg.hasSeed {
			paramOpts = append(paramOpts, param.WithSeed(seed))
		}
		p = param.Image(128, backend, paramOpts...)
	}

	transforms := cfg.transforms
	if !cfg.hasTransforms {
		transforms = transform.Standard[B](rng)
	}
	if cfg.preprocess {
		switch pp, ok := model.(Preprocessor[B]); {
		case cfg.preprocessFn != nil:
			transforms = append(transforms, cfg.preprocessFn)
		case ok:
			transforms = append(transforms, pp.Preprocess())
		default:
			transforms = append(transforms, transform.Normalize[B](transform.ImageNetMean, transform.ImageNetStd))
		}
	}
	switch {
	case cfg.fixedSize > 0:
		transforms = append(transforms, transform.Resize[B](cfg.fixedSize, cfg.fixedSize))
	case p.Height < 224 || p.Width < 224:
		// Convolutional stacks trained on 224x224 inputs produce
		// degenerate activations on tiny images.
		transforms = append(transforms, transform.Resize[B](224, 224))
	}
	transformFn := transform.Compose(transforms...)

	hooks, err := HookModel[B](model, p.ImageFn)
	if err != nil {
		return nil, err
	}
	obj, err := As[B](objective)
	if err != nil {
		return nil, err
	}

	var optimizer optim.Optimizer
	if cfg.optimizer != nil {
		optimizer = cfg.optimizer(p.Params)
	} else {
		optimizer = optim.NewAdam(p.Params, optim.AdamConfig{LR: 0.05}, backend)
	}

	tape := backend.GetTape()
	tape.StartRecording()
	defer func() {
		tape.Clear()
		tape.StopRecording()
	}()

	warned := false
	forwardOnce := func() {
		tape.Clear()
		img := p.ImageFn()
		if err := safeForward(hooks, transformFn, img); err != nil {
			if !warned {
				fmt.Fprintf(cfg.out, "warning: %v, continuing with activations from the last successful pass\n", err)
				warned = true
			}
		}
	}

	if cfg.verbose {
		forwardOnce()
		value, err := obj.Evaluate(hooks)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(cfg.out, "Initial loss: %.4f\n", -value.Item())
	}

	var bar *progressbar.ProgressBar
	if cfg.progress {
		bar = progressbar.NewOptions(maxStep,
			progressbar.OptionSetDescription(obj.Description()),
			progressbar.OptionSetWriter(cfg.out),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var stepErr error
	stepFn := func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
		forwardOnce()
		value, err := obj.Evaluate(hooks)
		if err != nil {
			stepErr = err
			return 0, nil
		}
		loss := value.MulScalar(-1)
		grads := autodiff.Backward(loss, backend)
		return loss.Item(), grads
	}

	snapshots := make([]Snapshot, 0, len(thresholds))
	interrupted := false
	lastStep := 0

	for i := 1; i <= maxStep; i++ {
		select {
		case <-ctx.Done():
			interrupted = true
		default:
		}
		if interrupted {
			break
		}

		loss := optimizer.Step(stepFn)
		if stepErr != nil {
			return snapshots, stepErr
		}
		lastStep = i
		if bar != nil {
			_ = bar.Add(1)
		}

		if isThreshold[i] {
			if cfg.verbose {
				fmt.Fprintf(cfg.out, "Loss at step %d: %.4f\n", i, loss)
			}
			snapshots = append(snapshots, snapshotNow(p, tape, i))
			if cfg.inline {
				_ = imageio.Inline(cfg.out, snapshots[len(snapshots)-1].Image(0))
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	canceled := false
	if interrupted {
		fmt.Fprintf(cfg.out, "Interrupted optimization at step %d.\n", lastStep)
		snapshots = append(snapshots, snapshotNow(p, tape, lastStep))
		canceled = confirmStop(cfg.in, cfg.out)
	}

	if len(snapshots) > 0 {
		last := snapshots[len(snapshots)-1]
		if cfg.savePath != "" {
			if err := saveSnapshot(last, cfg.savePath); err != nil {
				return snapshots, err
			}
		}
		// An inline preview replaces the viewer, not the other way
		// around: when both are on, the terminal shows the result and
		// no external window opens.
		if cfg.inline {
			_ = imageio.Inline(cfg.out, last.Image(0))
		} else if cfg.show {
			if err := imageio.View(last.Image(0)); err != nil {
				fmt.Fprintf(cfg.out, "warning: could not open viewer: %v\n", err)
			}
		}
	}

	if canceled {
		return snapshots, fmt.Errorf("interrupted at step %d: %w", lastStep, ErrCanceled)
	}
	return snapshots, nil
}

// safeForward applies the transforms and runs the hooked forward pass,
// converting panics from either stage into a *ForwardPassError.
// Transform panics are folded in because jitter and rescaling change
// the input size between steps, and size mismatches surface inside the
// model as often as in the transforms themselves.
func safeForward[B tensor.Backend](hooks *Hooks[B], transformFn transform.Transform[B], img *tensor.Tensor[float32, B]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ForwardPassError{Panic: r}
		}
	}()
	return hooks.Forward(transformFn(img))
}

func normalizeThresholds(thresholds []int) ([]int, error) {
	if len(thresholds) == 0 {
		return nil, configErrorf("at least one snapshot threshold is required")
	}
	seen := make(map[int]bool, len(thresholds))
	out := make([]int, 0, len(thresholds))
	for _, t := range thresholds {
		if t < 1 {
			return nil, configErrorf("thresholds must be at least 1, got %d", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out, nil
}

// snapshotNow materializes the current image without touching the tape.
func snapshotNow[B autodiff.BackwardCapable](p *param.Parameterization[B], tape *autodiff.GradientTape, step int) Snapshot {
	recording := tape.IsRecording()
	if recording {
		tape.StopRecording()
	}
	img := p.ImageFn()
	if recording {
		tape.StartRecording()
	}
	return newSnapshot(img, step)
}

func saveSnapshot(s Snapshot, path string) error {
	if s.Batch == 1 {
		return imageio.Save(s.Image(0), path)
	}
	images := make([]image.Image, s.Batch)
	for b := 0; b < s.Batch; b++ {
		images[b] = s.Image(b)
	}
	return imageio.Save(imageio.Grid(images), path)
}

// confirmStop asks whether queued renders should stop too. It reports
// true (stop everything) when the answer is yes or when no interactive
// answer can be collected.
func confirmStop(in io.Reader, out io.Writer) bool {
	if in == nil {
		return true
	}
	if f, ok := in.(*os.File); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return true
		}
	}
	fmt.Fprint(out, "Interrupted. Stop all queued renders? [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
