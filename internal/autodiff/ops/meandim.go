package ops

import "github.com/born-ml/lumen/internal/tensor"

// MeanDimOp records a mean reduction along one dimension.
//
// Like SumDimOp, but the broadcast gradient is divided by the size of the
// reduced dimension.
type MeanDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
	dimSize int
}

// NewMeanDimOp creates a new MeanDimOp. dim must already be normalized.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
		dimSize: x.Shape()[dim],
	}
}

// Backward broadcasts the gradient and scales by 1/dimSize.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]

	grad := outputGrad
	if !op.keepDim {
		unsqueezed := x.Shape().Clone()
		unsqueezed[op.dim] = 1
		grad = backend.Reshape(grad, unsqueezed)
	}

	gradX := broadcastTo(grad, x.Shape())
	scaleInplace(gradX, 1/float64(op.dimSize))

	return []*tensor.RawTensor{gradX}
}

// Inputs returns [x].
func (op *MeanDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor {
	return op.output
}
