package ops

import "github.com/born-ml/lumen/internal/tensor"

// TanhOp records a hyperbolic tangent activation.
//
// The derivative is expressed through the saved output:
//
//	d(tanh x)/dx = 1 - tanh²(x)
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{input: input, output: output}
}

// Backward applies the chain rule through the saved activation.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic("tanh backward: failed to create gradient tensor")
	}

	switch op.input.DType() {
	case tensor.Float32:
		tanhChain(grad.AsFloat32(), op.output.AsFloat32(), outputGrad.AsFloat32())
	case tensor.Float64:
		tanhChain(grad.AsFloat64(), op.output.AsFloat64(), outputGrad.AsFloat64())
	default:
		panic("tanh backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

func tanhChain[T float32 | float64](dst, tanhX, grad []T) {
	for i := range dst {
		dst[i] = grad[i] * (1 - tanhX[i]*tanhX[i])
	}
}

// Inputs returns [x].
func (op *TanhOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns tanh(x).
func (op *TanhOp) Output() *tensor.RawTensor {
	return op.output
}
