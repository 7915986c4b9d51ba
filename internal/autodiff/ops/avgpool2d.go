package ops

import "github.com/born-ml/lumen/internal/tensor"

// AvgPool2DOp records an average pooling operation.
//
// Average pooling is linear, so the backward pass spreads each output
// gradient uniformly over its window, scaled by 1/window size. The backend
// kernel does the spreading.
type AvgPool2DOp struct {
	input      *tensor.RawTensor
	output     *tensor.RawTensor
	kernelSize int
	stride     int
}

// NewAvgPool2DOp creates a new AvgPool2DOp.
func NewAvgPool2DOp(input, output *tensor.RawTensor, kernelSize, stride int) *AvgPool2DOp {
	return &AvgPool2DOp{
		input:      input,
		output:     output,
		kernelSize: kernelSize,
		stride:     stride,
	}
}

// Backward distributes the output gradient uniformly over each window.
func (op *AvgPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad := backend.AvgPool2DBackward(op.input, outputGrad, op.kernelSize, op.stride)
	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns [input].
func (op *AvgPool2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the pooled tensor.
func (op *AvgPool2DOp) Output() *tensor.RawTensor {
	return op.output
}
