package ops

import "github.com/born-ml/lumen/internal/tensor"

// DivOp records element-wise division: output = a / b.
//
// Quotient rule:
//
//	grad_a = grad / b
//	grad_b = -grad * (a/b) / b
//
// The second form reuses the saved output instead of recomputing a/b.
type DivOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward applies the quotient rule and undoes broadcasting.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := reduceBroadcast(backend.Div(outputGrad, b), a.Shape(), backend)

	gradBFull := negateGradient(backend.Div(backend.Mul(outputGrad, op.output), b), backend)
	gradB := reduceBroadcast(gradBFull, b.Shape(), backend)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns a / b.
func (op *DivOp) Output() *tensor.RawTensor {
	return op.output
}
