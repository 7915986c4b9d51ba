package nn

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// AvgPool2D is a 2D average pooling layer.
//
// Average pooling reduces spatial dimensions by averaging each window.
// Like MaxPool2D it has no learnable parameters. With kernelSize equal
// to the input's spatial size it acts as global average pooling, the
// usual final spatial reduction before a classifier head.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
type AvgPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	backend    B
}

// NewAvgPool2D creates a new 2D average pooling layer with a square window.
func NewAvgPool2D[B tensor.Backend](kernelSize, stride int, backend B) *AvgPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid stride %d", stride))
	}

	return &AvgPool2D[B]{
		kernelSize: kernelSize,
		stride:     stride,
		backend:    backend,
	}
}

// Forward performs the forward pass.
//
// Input: [batch, channels, height, width]
// Output: [batch, channels, out_height, out_width].
func (a *AvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("avgpool2d: expected 4D input [N,C,H,W], got %dD", len(input.Shape())))
	}

	outputRaw := a.backend.AvgPool2D(input.Raw(), a.kernelSize, a.stride)
	return tensor.New[float32](outputRaw, a.backend)
}

// Parameters returns an empty slice; AvgPool2D has no learnable parameters.
func (a *AvgPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a short description of the layer.
func (a *AvgPool2D[B]) String() string {
	return fmt.Sprintf("AvgPool2D(kernel_size=%d, stride=%d)", a.kernelSize, a.stride)
}

// KernelSize returns the pooling kernel size.
func (a *AvgPool2D[B]) KernelSize() int {
	return a.kernelSize
}

// Stride returns the stride.
func (a *AvgPool2D[B]) Stride() int {
	return a.stride
}
