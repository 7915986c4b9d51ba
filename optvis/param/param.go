// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package param provides image parameterizations for feature
// visualization.
//
// A parameterization separates the optimized buffer from the image the
// model sees: the render loop updates Params with gradient steps, and
// ImageFn maps the current buffer into an RGB batch in [0,1]. The
// default pixel parameterization squashes the buffer through a sigmoid
// and, unless disabled, decorrelates color channels first, which biases
// the optimization toward the color statistics of natural images.
//
// Example:
//
//	p := param.Image(224, backend, param.WithBatch(4), param.WithSeed(1))
//	snapshots, err := optvis.Render(ctx, backend, model, "mixed4a",
//	    optvis.WithParam(p))
package param

import (
	"github.com/born-ml/lumen/internal/optvis/param"
	"github.com/born-ml/lumen/internal/tensor"
)

// Parameterization bundles the optimized parameters with the function
// producing the image they encode.
type Parameterization[B tensor.Backend] = param.Parameterization[B]

// Option configures Image.
type Option = param.Option

// WithBatch renders n images at once.
func WithBatch(n int) Option {
	return param.WithBatch(n)
}

// WithSize overrides the square default with an explicit height and
// width.
func WithSize(h, w int) Option {
	return param.WithSize(h, w)
}

// WithSD sets the standard deviation of the initial noise buffer.
func WithSD(sd float32) Option {
	return param.WithSD(sd)
}

// WithDecorrelate toggles the color decorrelation stage. It is enabled
// by default.
func WithDecorrelate(enabled bool) Option {
	return param.WithDecorrelate(enabled)
}

// WithSeed makes the initial buffer deterministic.
func WithSeed(seed int64) Option {
	return param.WithSeed(seed)
}

// Image creates a pixel parameterization of a size x size RGB image.
//
// The buffer starts as low-amplitude Gaussian noise. ImageFn applies
// the color decorrelation as a fixed 1x1 convolution and squashes the
// result through a sigmoid, so the visible image always stays in [0,1]
// while the buffer itself remains unbounded.
func Image[B tensor.Backend](size int, backend B, opts ...Option) *Parameterization[B] {
	return param.Image(size, backend, opts...)
}
