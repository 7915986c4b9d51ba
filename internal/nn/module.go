// Package nn implements neural network modules for the Lumen feature
// visualization toolkit.
//
// This package provides building blocks for constructing convolutional
// networks and observing them layer by layer:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters with gradient tracking
//   - Linear, Conv2D, MaxPool2D, AvgPool2D: core layers
//   - Activations: ReLU, Sigmoid, Tanh
//   - Sequential: container with named children
//   - Container / Observable: interfaces for walking a model's layers and
//     capturing intermediate activations by path
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/born-ml/lumen/internal/tensor"
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
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input tensor must have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features] and Conv2D
	// expects [batch, channels, height, width].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Modules without trainable
	// parameters (activations, pooling) return an empty slice.
	Parameters() []*Parameter[B]
}

// NamedModule pairs a child module with the name it was registered under.
type NamedModule[B tensor.Backend] struct {
	Name   string
	Module Module[B]
}

// Container is a module whose children can be enumerated by name.
//
// Containers give every submodule an addressable path: a child's path is
// its registered name, and nested containers join segments with "->"
// (e.g. "mixed3a->conv1"). The activation capture layer walks this tree
// to index which paths a model exposes.
type Container[B tensor.Backend] interface {
	Module[B]

	// Children returns the direct children in registration order.
	Children() []NamedModule[B]
}

// Observer receives a submodule's output during an observed forward pass.
// The path identifies the submodule relative to the root model.
type Observer[B tensor.Backend] func(path string, output *tensor.Tensor[float32, B])

// Observable is a module that can report intermediate outputs while
// running its forward pass.
//
// ForwardObserved behaves exactly like Forward but additionally invokes
// observe once per child with that child's output. Nested observables
// prefix their children's paths with their own name and "->". Every
// module in this package returns exactly one output tensor, so a path
// always maps to a single captured activation.
type Observable[B tensor.Backend] interface {
	Module[B]

	ForwardObserved(input *tensor.Tensor[float32, B], observe Observer[B]) *tensor.Tensor[float32, B]
}

// Stateful is a module that can export and restore its parameters as a
// flat name -> tensor map. Containers prefix nested parameter names with
// the child name and a dot (e.g. "conv1.weight").
//
// Modules without state (activations, pooling) simply do not implement
// this interface; containers skip them when collecting state.
type Stateful interface {
	// StateDict returns parameter names mapped to their raw tensors.
	// The returned tensors are the live parameter buffers, not copies.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies values from the given map into the module's
	// parameters, validating names, shapes and dtypes.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
