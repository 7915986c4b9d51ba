// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transform provides differentiable image transformations for
// the render loop.
//
// A Transform maps an image batch [N,C,H,W] to a transformed batch.
// Every transform is built from backend operations, so applying one
// inside a recording step keeps the image connected to the gradient
// tape: robustness transformations (jitter, scaling, padding) regularize
// the optimization without blocking gradients.
//
// Transforms that draw randomness take an explicit *rand.Rand so a
// render run can be made deterministic by seeding the source.
package transform

import (
	"math/rand"

	"github.com/born-ml/lumen/internal/optvis/transform"
	"github.com/born-ml/lumen/internal/tensor"
)

// Transform maps an image batch to a transformed image batch.
type Transform[B tensor.Backend] = transform.Transform[B]

// ImageNet channel statistics used by torchvision-style models.
var (
	ImageNetMean = transform.ImageNetMean
	ImageNetStd  = transform.ImageNetStd
)

// Compose chains transforms left to right into a single Transform.
func Compose[B tensor.Backend](transforms ...Transform[B]) Transform[B] {
	return transform.Compose(transforms...)
}

// Pad adds a border of w pixels on every side.
func Pad[B tensor.Backend](w int, mode tensor.PadMode) Transform[B] {
	return transform.Pad[B](w, mode)
}

// PadValue adds a border of w pixels filled with a constant value.
func PadValue[B tensor.Backend](w int, value float32) Transform[B] {
	return transform.PadValue[B](w, value)
}

// Jitter shifts the image by a random offset in [-d, d] on both axes.
func Jitter[B tensor.Backend](d int, rng *rand.Rand) Transform[B] {
	return transform.Jitter[B](d, rng)
}

// RandomScale rescales the image by a factor drawn from scales.
func RandomScale[B tensor.Backend](scales []float32, rng *rand.Rand) Transform[B] {
	return transform.RandomScale[B](scales, rng)
}

// Resize rescales the image to h x w with bilinear interpolation.
func Resize[B tensor.Backend](h, w int) Transform[B] {
	return transform.Resize[B](h, w)
}

// Normalize shifts and scales each channel: (x - mean[c]) / std[c].
func Normalize[B tensor.Backend](mean, std [3]float32) Transform[B] {
	return transform.Normalize[B](mean, std)
}

// Standard returns the default robustness transforms: gray padding,
// coarse jitter, a small random rescale, and fine jitter.
func Standard[B tensor.Backend](rng *rand.Rand) []Transform[B] {
	return transform.Standard[B](rng)
}
