package ops

import "github.com/born-ml/lumen/internal/tensor"

// SoftmaxOp records a softmax along one dimension.
//
// The Jacobian contracts to a per-slice expression:
//
//	dx_j = s_j * (dy_j - Σ_i dy_i * s_i)
//
// where s is the saved softmax output of the slice.
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewSoftmaxOp creates a new SoftmaxOp. dim must already be normalized to
// a non-negative index.
func NewSoftmaxOp(input, output *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{input: input, output: output, dim: dim}
}

// Backward contracts the softmax Jacobian against the output gradient.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic("softmax backward: failed to create gradient tensor")
	}

	shape := op.input.Shape()
	outerSize := 1
	for i := 0; i < op.dim; i++ {
		outerSize *= shape[i]
	}
	dimSize := shape[op.dim]
	innerSize := 1
	for i := op.dim + 1; i < len(shape); i++ {
		innerSize *= shape[i]
	}

	switch op.input.DType() {
	case tensor.Float32:
		softmaxChain(grad.AsFloat32(), op.output.AsFloat32(), outputGrad.AsFloat32(), outerSize, dimSize, innerSize)
	case tensor.Float64:
		softmaxChain(grad.AsFloat64(), op.output.AsFloat64(), outputGrad.AsFloat64(), outerSize, dimSize, innerSize)
	default:
		panic("softmax backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

func softmaxChain[T float32 | float64](dst, s, dy []T, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			offset := base + inner

			var dot T
			for j := 0; j < dimSize; j++ {
				idx := offset + j*innerSize
				dot += dy[idx] * s[idx]
			}

			for j := 0; j < dimSize; j++ {
				idx := offset + j*innerSize
				dst[idx] = s[idx] * (dy[idx] - dot)
			}
		}
	}
}

// Inputs returns [x].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the softmax probabilities.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}
