package ops

import "github.com/born-ml/lumen/internal/tensor"

// SumOp records a full reduction: output = Σ x with shape [1].
//
// The backward pass fills the input shape with the single gradient value.
type SumOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward broadcasts the scalar gradient over the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := fillLike(x, outputGrad)
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}

// fillLike creates a tensor shaped like x holding the scalar gradient in
// every element.
func fillLike(x, scalarGrad *tensor.RawTensor) *tensor.RawTensor {
	grad, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic("fillLike: failed to create gradient tensor")
	}

	switch x.DType() {
	case tensor.Float32:
		v := scalarGrad.AsFloat32()[0]
		data := grad.AsFloat32()
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		v := scalarGrad.AsFloat64()[0]
		data := grad.AsFloat64()
		for i := range data {
			data[i] = v
		}
	default:
		panic("fillLike: unsupported dtype")
	}

	return grad
}
