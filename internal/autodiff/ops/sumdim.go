package ops

import "github.com/born-ml/lumen/internal/tensor"

// SumDimOp records a sum reduction along one dimension.
//
// Every input element contributes with weight 1, so the backward pass
// broadcasts the output gradient back over the reduced dimension.
type SumDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp. dim must already be normalized.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward broadcasts the gradient over the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]

	grad := outputGrad
	if !op.keepDim {
		// Reinstate the reduced dimension at size 1 so broadcasting lines up.
		unsqueezed := x.Shape().Clone()
		unsqueezed[op.dim] = 1
		grad = backend.Reshape(grad, unsqueezed)
	}

	return []*tensor.RawTensor{broadcastTo(grad, x.Shape())}
}

// Inputs returns [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}

// broadcastTo expands a tensor to the target shape following NumPy rules.
// Always returns a fresh tensor.
func broadcastTo(t *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	result, err := tensor.NewRaw(targetShape, t.DType(), t.Device())
	if err != nil {
		panic("broadcastTo: failed to create result tensor")
	}

	if t.Shape().Equal(targetShape) {
		copy(result.Data(), t.Data())
		return result
	}

	switch t.DType() {
	case tensor.Float32:
		broadcastData(result.AsFloat32(), t.AsFloat32(), t.Shape(), targetShape)
	case tensor.Float64:
		broadcastData(result.AsFloat64(), t.AsFloat64(), t.Shape(), targetShape)
	default:
		panic("broadcastTo: unsupported dtype")
	}

	return result
}

func broadcastData[T float32 | float64](dst, src []T, srcShape, dstShape tensor.Shape) {
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dstShape.ComputeStrides()
	offset := len(dstShape) - len(srcShape)

	for i := range dst {
		srcIdx := 0
		remainder := i
		for d := 0; d < len(dstShape); d++ {
			coord := remainder / dstStrides[d]
			remainder %= dstStrides[d]

			srcDim := d - offset
			if srcDim >= 0 {
				if srcShape[srcDim] == 1 {
					coord = 0
				}
				srcIdx += coord * srcStrides[srcDim]
			}
		}
		dst[i] = src[srcIdx]
	}
}
