// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/lumen/internal/checkpoint"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: compute output from input
//   - Parameters: return all trainable parameters
//
// Modules compose into larger architectures:
//
//	model := nn.NewSequential[Backend]().
//	    Add("fc1", nn.NewLinear(784, 128, backend)).
//	    Add("relu1", nn.NewReLU[Backend]()).
//	    Add("fc2", nn.NewLinear(128, 10, backend))
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// NamedModule pairs a child module with the name it was registered under.
type NamedModule[B tensor.Backend] = nn.NamedModule[B]

// Container is a module whose children can be enumerated by name.
//
// Containers give every submodule an addressable path: a child's path is
// its registered name, and nested containers join segments with "->"
// (e.g. "mixed3a->conv1").
type Container[B tensor.Backend] = nn.Container[B]

// Observer receives a submodule's output during an observed forward pass.
// The path identifies the submodule relative to the root model.
type Observer[B tensor.Backend] = nn.Observer[B]

// Observable is a module that can report intermediate outputs while
// running its forward pass. ForwardObserved behaves exactly like Forward
// but additionally invokes the observer once per child with that child's
// output.
type Observable[B tensor.Backend] = nn.Observable[B]

// Stateful is a module that can export and restore its parameters as a
// flat name -> tensor map. Containers prefix nested parameter names with
// the child name and a dot (e.g. "conv1.weight").
type Stateful = nn.Stateful

// Save saves a module's parameters to a .lumen file.
//
// This is a convenience function that exports the module's state
// dictionary and writes it to a checkpoint file.
//
// Parameters:
//   - module: The module to save
//   - path: File path to write to
//   - modelType: Architecture name recorded in the header (e.g. "convnet")
//   - metadata: Optional metadata (can be nil)
//
// Example:
//
//	backend := cpu.New()
//	model := zoo.ConvNet(backend)
//	err := nn.Save(model, "model.lumen", "convnet", nil)
func Save(module Stateful, path, modelType string, metadata map[string]string) error {
	return checkpoint.Save(module, path, modelType, metadata)
}

// Load loads a module's parameters from a .lumen file.
//
// This is a convenience function that reads a state dictionary from a
// checkpoint and loads it into the provided module, validating names,
// shapes and dtypes. The file's checksum is verified before any tensor
// is read.
//
// Returns the checkpoint header alongside any error, so callers can
// inspect the architecture name and metadata of what they just loaded.
//
// Example:
//
//	backend := cpu.New()
//	model := zoo.ConvNet(backend)
//	header, err := nn.Load("model.lumen", backend, model)
func Load[B tensor.Backend](path string, backend B, module Stateful) (checkpoint.Header, error) {
	reader, err := checkpoint.NewReader(path)
	if err != nil {
		return checkpoint.Header{}, err
	}
	defer func() {
		_ = reader.Close()
	}()

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return checkpoint.Header{}, err
	}

	if err := module.LoadStateDict(stateDict); err != nil {
		return checkpoint.Header{}, err
	}

	return reader.Header(), nil
}
