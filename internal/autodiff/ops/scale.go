package ops

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// MulScalarOp records scalar multiplication: output = x * c.
//
// The backward pass scales the gradient by the same constant. Objective
// weighting and learning-rate style scaling in the visualization pipeline
// run through this op.
type MulScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scalar float64
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		scalar: scalarAsFloat64(scalar),
	}
}

// Backward scales the output gradient by the recorded constant.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad.Clone()
	scaleInplace(grad, op.scalar)
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *MulScalarOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns x * c.
func (op *MulScalarOp) Output() *tensor.RawTensor {
	return op.output
}

// AddScalarOp records scalar addition: output = x + c.
//
// The constant drops out of the derivative, so the gradient passes through
// unchanged.
type AddScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddScalarOp creates a new AddScalarOp.
func NewAddScalarOp(x, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward passes the gradient through.
func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

// Inputs returns [x].
func (op *AddScalarOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns x + c.
func (op *AddScalarOp) Output() *tensor.RawTensor {
	return op.output
}

func scalarAsFloat64(scalar any) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	default:
		panic(fmt.Sprintf("unsupported scalar type %T", scalar))
	}
}
