package nn

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// GlobalAvgPool2D averages each feature map down to a single value,
// collapsing [batch, channels, height, width] to [batch, channels].
//
// Unlike AvgPool2D it has no fixed window: it adapts to whatever
// spatial size it receives, which makes convolutional stacks ending in
// it usable at any input resolution.
type GlobalAvgPool2D[B tensor.Backend] struct{}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] {
	return &GlobalAvgPool2D[B]{}
}

// Forward performs the forward pass.
//
// Input: [batch, channels, height, width]
// Output: [batch, channels].
func (g *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("globalavgpool2d: expected 4D input [N,C,H,W], got %dD", len(input.Shape())))
	}
	return input.MeanDim(3, false).MeanDim(2, false)
}

// Parameters returns an empty slice; pooling has no learnable parameters.
func (g *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a short description of the layer.
func (g *GlobalAvgPool2D[B]) String() string {
	return "GlobalAvgPool2D()"
}
