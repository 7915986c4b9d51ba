// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package zoo provides small reference models for feature
// visualization and training demos.
//
// # Overview
//
// The zoo ships two convolutional classifiers built from named layers,
// so every interesting activation is addressable by path:
//
//	model, err := zoo.Build("inception", backend)
//	for _, info := range zoo.Describe(model) {
//	    fmt.Printf("%s (%s): %d params\n", info.Path, info.Kind, info.Params)
//	}
//
// Both architectures end in global average pooling and therefore
// accept any input resolution. That matters for visualization:
// rendered images are usually larger than the training inputs.
//
// # Models
//
//   - "convnet": a three-stage ConvNet (conv/relu/pool) with a 10-way
//     linear head. Small enough to train in seconds on synthetic data.
//   - "inception": a miniature inception-style network whose mixed
//     blocks run parallel branches of different receptive fields, the
//     classic subject of channel visualizations. It also carries the
//     preprocessing transform its architecture family was trained with.
package zoo

import (
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
	"github.com/born-ml/lumen/internal/zoo"
)

// LayerInfo describes one named layer of a model.
type LayerInfo = zoo.LayerInfo

// InceptionBlock is a mixed block of parallel convolution branches
// whose outputs are summed into a common width.
type InceptionBlock[B tensor.Backend] = zoo.InceptionBlock[B]

// InceptionNet is a miniature inception-style classifier. Its
// Preprocess method returns the input transform the architecture
// family expects.
type InceptionNet[B tensor.Backend] = zoo.InceptionNet[B]

// Models lists the buildable model names.
func Models() []string {
	return zoo.Models()
}

// Build constructs a model by name. Unknown names return an error
// listing the available models.
func Build[B tensor.Backend](name string, backend B) (nn.Module[B], error) {
	return zoo.Build(name, backend)
}

// ConvNet builds a three-stage convolutional classifier for 10
// classes. Layer paths: conv1..3, relu1..3, pool1..2, gap, fc.
func ConvNet[B tensor.Backend](backend B) *nn.Sequential[B] {
	return zoo.ConvNet(backend)
}

// Inception builds the miniature inception network. Layer paths
// include the mixed blocks (mixed3a, mixed3b, mixed4a, mixed4b) and
// their branches (for example "mixed4a->conv").
func Inception[B tensor.Backend](backend B) *InceptionNet[B] {
	return zoo.Inception(backend)
}

// NewInceptionBlock creates a mixed block mapping inChannels to width
// output channels. Width must be even.
func NewInceptionBlock[B tensor.Backend](inChannels, width int, backend B) *InceptionBlock[B] {
	return zoo.NewInceptionBlock(inChannels, width, backend)
}

// Describe walks a model and reports every named layer with its kind
// and parameter count, in forward order.
func Describe[B tensor.Backend](model nn.Module[B]) []LayerInfo {
	return zoo.Describe(model)
}

// LayerPaths returns the paths of all parameter-bearing layers, the
// usual targets for visualization objectives.
func LayerPaths[B tensor.Backend](model nn.Module[B]) []string {
	return zoo.LayerPaths(model)
}
