package nn

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// Flatten collapses all dimensions after the batch dimension.
//
// It bridges convolutional feature maps and fully connected layers:
// [batch, channels, height, width] becomes [batch, channels*height*width].
// The reshape is recorded on the tape, so gradients flow back through it.
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a new Flatten layer.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward reshapes [batch, d1, d2, ...] to [batch, d1*d2*...].
func (f *Flatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("flatten: expected at least 2D input, got shape %v", shape))
	}

	features := 1
	for _, dim := range shape[1:] {
		features *= dim
	}
	return input.Reshape(shape[0], features)
}

// Parameters returns an empty slice; Flatten has no learnable parameters.
func (f *Flatten[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a short description of the layer.
func (f *Flatten[B]) String() string {
	return "Flatten()"
}
