// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optvis renders images that maximize activations inside a
// neural network.
//
// A render run hooks a model's layers, parameterizes an input image,
// and optimizes the image so an objective computed from the captured
// activations grows. The building blocks (hooks, objectives,
// parameterizations, transforms) are exposed so callers can compose
// their own runs; Render wires them together with the defaults that
// work well in practice.
//
// Example:
//
//	import (
//	    "github.com/born-ml/lumen/autodiff"
//	    "github.com/born-ml/lumen/backend/cpu"
//	    "github.com/born-ml/lumen/optvis"
//	    "github.com/born-ml/lumen/zoo"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := zoo.Inception(backend)
//
//	    snapshots, err := optvis.Render(
//	        context.Background(), backend, model, "mixed4a:7",
//	        optvis.WithThresholds[Backend](128, 256, 512),
//	        optvis.WithSave[Backend]("mixed4a_7.png"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = snapshots
//	}
package optvis

import (
	"context"
	"io"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/optim"
	"github.com/born-ml/lumen/internal/optvis"
	"github.com/born-ml/lumen/internal/optvis/param"
	"github.com/born-ml/lumen/internal/optvis/transform"
	"github.com/born-ml/lumen/internal/tensor"
)

// Errors

// ErrCanceled reports that a render was interrupted and the user
// confirmed stopping. Callers running several renders in sequence
// should abandon the queue when errors.Is(err, ErrCanceled).
var ErrCanceled = optvis.ErrCanceled

// ConfigurationError reports a mistake in how a render was set up: an
// unknown layer path, a malformed objective, or invalid options. It is
// always fatal for the run.
type ConfigurationError = optvis.ConfigurationError

// ForwardPassError reports that the model panicked during a hooked
// forward pass. The panic is recovered rather than propagated: the
// render loop logs a warning once and keeps optimizing against the
// activations captured by the last successful pass.
type ForwardPassError = optvis.ForwardPassError

// Hooks

// Hooks captures the intermediate activations of a hooked model, keyed
// by layer path.
type Hooks[B tensor.Backend] = optvis.Hooks[B]

// HookModel registers activation capture on every addressable layer of
// model. The imageFn supplies the current input image for Forward.
func HookModel[B tensor.Backend](model nn.Module[B], imageFn func() *tensor.Tensor[float32, B]) (*Hooks[B], error) {
	return optvis.HookModel(model, imageFn)
}

// Objectives

// Objective is a differentiable scalar computed from captured
// activations. Leaves select a layer, channel, or single neuron;
// combinators build weighted sums of leaves.
//
// An objective evaluates to the quantity being maximized. The render
// loop minimizes its negation.
type Objective[B tensor.Backend] = optvis.Objective[B]

// Layer maximizes the mean activation of an entire layer.
func Layer[B tensor.Backend](path string) *Objective[B] {
	return optvis.Layer[B](path)
}

// Channel maximizes the mean activation of one channel of a layer.
func Channel[B tensor.Backend](path string, channel int) *Objective[B] {
	return optvis.Channel[B](path, channel)
}

// Neuron maximizes a single spatial position (column x, row y) of one
// channel. The layer must produce a 4D activation.
//
// Layer, channel, and neuron objectives all carry a ForBatch method
// that restricts them to one entry of a batched parameterization.
func Neuron[B tensor.Backend](path string, channel, x, y int) *Objective[B] {
	return optvis.Neuron[B](path, channel, x, y)
}

// Custom wraps an arbitrary function of the captured activations as an
// objective leaf. The function must return a scalar tensor built from
// backend operations so gradients can flow back to the image.
func Custom[B tensor.Backend](desc string, fn func(*Hooks[B]) (*tensor.Tensor[float32, B], error)) *Objective[B] {
	return optvis.Custom(desc, fn)
}

// As normalizes the accepted objective forms into an *Objective:
//
//   - *Objective is passed through unchanged
//   - "path" selects a whole layer, "path:3" selects channel 3
//   - func(*Hooks[B]) (*tensor.Tensor[float32, B], error) and the
//     error-free variant become custom objectives
func As[B tensor.Backend](spec any) (*Objective[B], error) {
	return optvis.As[B](spec)
}

// Snapshots

// Snapshot is a rendered image batch captured at an optimization
// threshold. Pixels are stored channel-last ([batch][height][width][channel])
// with values clamped to [0,1], detached from the gradient tape.
type Snapshot = optvis.Snapshot

// Render

// Preprocessor lets a model supply the input transform it was trained
// with. When a model implements it, Render appends the returned
// transform instead of the default ImageNet normalization.
type Preprocessor[B tensor.Backend] = optvis.Preprocessor[B]

// Option configures a render run.
type Option[B autodiff.BackwardCapable] = optvis.Option[B]

// WithParam replaces the default 128x128 pixel parameterization.
func WithParam[B autodiff.BackwardCapable](p *param.Parameterization[B]) Option[B] {
	return optvis.WithParam(p)
}

// WithOptimizer replaces the default Adam(lr=0.05) optimizer factory.
func WithOptimizer[B autodiff.BackwardCapable](factory func(params []*nn.Parameter[B]) optim.Optimizer) Option[B] {
	return optvis.WithOptimizer(factory)
}

// WithTransforms replaces the default robustness transforms.
func WithTransforms[B autodiff.BackwardCapable](transforms ...transform.Transform[B]) Option[B] {
	return optvis.WithTransforms(transforms...)
}

// WithThresholds sets the steps at which snapshots are taken. The run
// ends at the largest threshold. Defaults to (512,).
func WithThresholds[B autodiff.BackwardCapable](steps ...int) Option[B] {
	return optvis.WithThresholds[B](steps...)
}

// WithFixedImageSize resizes the transformed image to size x size just
// before the model sees it.
func WithFixedImageSize[B autodiff.BackwardCapable](size int) Option[B] {
	return optvis.WithFixedImageSize[B](size)
}

// WithSeed makes the run reproducible: the parameterization's initial
// noise and the stochastic transforms all derive from seed.
func WithSeed[B autodiff.BackwardCapable](seed int64) Option[B] {
	return optvis.WithSeed[B](seed)
}

// WithPreprocess controls whether the model's preprocessing transform
// (or the ImageNet fallback) is appended. Enabled by default.
func WithPreprocess[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return optvis.WithPreprocess[B](enabled)
}

// WithPreprocessFn supplies the normalization applied just before the
// model sees the image, taking precedence over the model's own
// Preprocessor and the ImageNet default.
func WithPreprocessFn[B autodiff.BackwardCapable](fn transform.Transform[B]) Option[B] {
	return optvis.WithPreprocessFn(fn)
}

// WithVerbose logs the objective value at the start and at every
// threshold.
func WithVerbose[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return optvis.WithVerbose[B](enabled)
}

// WithProgress controls the progress bar drawn over the optimization
// steps. Enabled by default.
func WithProgress[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return optvis.WithProgress[B](enabled)
}

// WithShow opens the final image in the system viewer. Enabled by
// default.
func WithShow[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return optvis.WithShow[B](enabled)
}

// WithInline prints an ANSI preview of each snapshot into the
// terminal. Needs 24-bit color support.
func WithInline[B autodiff.BackwardCapable](enabled bool) Option[B] {
	return optvis.WithInline[B](enabled)
}

// WithSave writes the final snapshot to path as a PNG.
func WithSave[B autodiff.BackwardCapable](path string) Option[B] {
	return optvis.WithSave[B](path)
}

// WithOutput redirects run messages (warnings, verbose logging, the
// interrupt prompt) away from standard output.
func WithOutput[B autodiff.BackwardCapable](w io.Writer) Option[B] {
	return optvis.WithOutput[B](w)
}

// WithInput replaces standard input for the interrupt prompt.
func WithInput[B autodiff.BackwardCapable](r io.Reader) Option[B] {
	return optvis.WithInput[B](r)
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
	return optvis.Render(ctx, backend, model, objective, opts...)
}
