// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv2D, MaxPool2D, AvgPool2D, GlobalAvgPool2D, Flatten
//   - Activations: ReLU, Sigmoid, Tanh
//   - Loss functions: CrossEntropyLoss
//   - Utilities: Sequential, Module interface, Parameter, Walk
//   - Observation: Observable modules reporting intermediate activations
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/lumen/nn"
//	    "github.com/born-ml/lumen/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Build a small convolutional classifier
//	    model := nn.NewSequential[*cpu.Backend]().
//	        Add("conv1", nn.NewConv2D(3, 16, 3, 3, 1, 1, true, backend)).
//	        Add("relu1", nn.NewReLU[*cpu.Backend]()).
//	        Add("pool1", nn.NewMaxPool2D(2, 2, backend)).
//	        Add("gap", nn.NewGlobalAvgPool2D[*cpu.Backend]()).
//	        Add("fc", nn.NewLinear(16, 10, backend))
//
//	    // Forward pass
//	    output := model.Forward(input)
//	}
//
// # Layers
//
// Linear: Fully connected layer with Xavier initialization
//
//	layer := nn.NewLinear(inFeatures, outFeatures, backend)
//
// Conv2D: 2D convolutional layer with im2col algorithm
//
//	conv := nn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, useBias, backend)
//
// MaxPool2D / AvgPool2D: 2D pooling layers
//
//	pool := nn.NewMaxPool2D(kernelSize, stride, backend)
//
// # Activations
//
// Common activation functions:
//
//	relu := nn.NewReLU[B]()
//	sigmoid := nn.NewSigmoid[B]()
//	tanh := nn.NewTanh[B]()
//
// # Loss Functions
//
// CrossEntropyLoss: For classification tasks (numerically stable)
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(logits, labels)
//
// # Observation
//
// Sequential containers register every child under a name, giving each
// submodule an addressable path ("mixed4a", "mixed4a->conv1"). Observable
// modules replay their forward pass while reporting each child's output,
// which is how activation hooks capture intermediate layers:
//
//	model.ForwardObserved(input, func(path string, out *tensor.Tensor[float32, B]) {
//	    fmt.Println(path, out.Shape())
//	})
//
// # Persistence
//
// Stateful modules export their parameters as a flat name to tensor map.
// Save and Load move those maps to and from .lumen checkpoint files:
//
//	err := nn.Save(model, "model.lumen", "convnet", nil)
//	header, err := nn.Load("model.lumen", backend, model)
package nn
