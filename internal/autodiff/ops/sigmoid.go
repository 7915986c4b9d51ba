package ops

import "github.com/born-ml/lumen/internal/tensor"

// SigmoidOp records a sigmoid activation: output = 1 / (1 + exp(-x)).
//
// The derivative is expressed through the saved output:
//
//	dσ/dx = σ(x) * (1 - σ(x))
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

// Backward applies the chain rule through the saved activation.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic("sigmoid backward: failed to create gradient tensor")
	}

	switch op.input.DType() {
	case tensor.Float32:
		sigmoidChain(grad.AsFloat32(), op.output.AsFloat32(), outputGrad.AsFloat32())
	case tensor.Float64:
		sigmoidChain(grad.AsFloat64(), op.output.AsFloat64(), outputGrad.AsFloat64())
	default:
		panic("sigmoid backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

func sigmoidChain[T float32 | float64](dst, sigma, grad []T) {
	for i := range dst {
		dst[i] = grad[i] * sigma[i] * (1 - sigma[i])
	}
}

// Inputs returns [x].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns σ(x).
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}
