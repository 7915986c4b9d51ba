package ops

import "github.com/born-ml/lumen/internal/tensor"

// ReLUOp records a rectified linear unit activation: output = max(0, x).
//
// The subgradient routes the output gradient through positions where the
// input was positive and blocks it elsewhere.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward masks the gradient with the sign of the saved input.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic("relu backward: failed to create gradient tensor")
	}

	switch op.input.DType() {
	case tensor.Float32:
		reluMask(grad.AsFloat32(), op.input.AsFloat32(), outputGrad.AsFloat32())
	case tensor.Float64:
		reluMask(grad.AsFloat64(), op.input.AsFloat64(), outputGrad.AsFloat64())
	default:
		panic("relu backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

func reluMask[T float32 | float64](dst, input, grad []T) {
	for i := range dst {
		if input[i] > 0 {
			dst[i] = grad[i]
		}
	}
}

// Inputs returns [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
