package nn

import (
	"github.com/born-ml/lumen/internal/tensor"
)

// ReLUBackend is implemented by backends that support ReLU activation.
type ReLUBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// SigmoidBackend is implemented by backends that support Sigmoid activation.
type SigmoidBackend interface {
	Sigmoid(*tensor.RawTensor) *tensor.RawTensor
}

// TanhBackend is implemented by backends that support Tanh activation.
type TanhBackend interface {
	Tanh(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// Activations are not part of the base Backend interface; the layer
// discovers them on the backend through an interface assertion, so the
// gradient-recording decorator can supply the differentiable version.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if reluBackend, ok := any(backend).(ReLUBackend); ok {
		return tensor.New[float32](reluBackend.ReLU(input.Raw()), backend)
	}
	panic("relu: backend must implement ReLU (use autodiff.AutodiffBackend)")
}

// Parameters returns an empty slice; ReLU has no trainable parameters.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns the layer name.
func (r *ReLU[B]) String() string { return "ReLU()" }

// Sigmoid is a sigmoid activation module.
//
// Applies the element-wise function: σ(x) = 1 / (1 + exp(-x))
//
// Sigmoid squashes values to the range (0, 1); image parameterizations
// use it to keep pixel values valid.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies Sigmoid activation: σ(x) = 1 / (1 + exp(-x)).
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if sigmoidBackend, ok := any(backend).(SigmoidBackend); ok {
		return tensor.New[float32](sigmoidBackend.Sigmoid(input.Raw()), backend)
	}
	panic("sigmoid: backend must implement Sigmoid (use autodiff.AutodiffBackend)")
}

// Parameters returns an empty slice; Sigmoid has no trainable parameters.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns the layer name.
func (s *Sigmoid[B]) String() string { return "Sigmoid()" }

// Tanh is a hyperbolic tangent activation module.
//
// Applies the element-wise function: tanh(x), squashing values to the
// zero-centered range (-1, 1).
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies Tanh activation.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if tanhBackend, ok := any(backend).(TanhBackend); ok {
		return tensor.New[float32](tanhBackend.Tanh(input.Raw()), backend)
	}
	panic("tanh: backend must implement Tanh (use autodiff.AutodiffBackend)")
}

// Parameters returns an empty slice; Tanh has no trainable parameters.
func (t *Tanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns the layer name.
func (t *Tanh[B]) String() string { return "Tanh()" }
