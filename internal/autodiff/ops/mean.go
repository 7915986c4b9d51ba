package ops

import "github.com/born-ml/lumen/internal/tensor"

// MeanOp records a full mean reduction: output = Σ x / n with shape [1].
//
// Each element contributed 1/n, so the backward pass fills the input shape
// with grad/n.
type MeanOp struct {
	inputs      []*tensor.RawTensor
	output      *tensor.RawTensor
	numElements int
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{
		inputs:      []*tensor.RawTensor{x},
		output:      output,
		numElements: x.Shape().NumElements(),
	}
}

// Backward broadcasts grad/n over the input shape.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := fillLike(x, outputGrad)
	scaleInplace(grad, 1/float64(op.numElements))
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scalar mean.
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}
