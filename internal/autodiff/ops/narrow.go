package ops

import "github.com/born-ml/lumen/internal/tensor"

// NarrowOp records a contiguous slice along one dimension.
//
// The backward pass scatters the gradient back into a zero tensor of the
// input shape at the sliced window; elements outside the window received
// no contribution and stay zero.
type NarrowOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	dim    int
	start  int
	length int
}

// NewNarrowOp creates a new NarrowOp. dim must already be normalized.
func NewNarrowOp(input, output *tensor.RawTensor, dim, start, length int) *NarrowOp {
	return &NarrowOp{
		input:  input,
		output: output,
		dim:    dim,
		start:  start,
		length: length,
	}
}

// Backward pastes the gradient into the sliced window of a zero tensor.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	grad, err := tensor.NewRaw(shape, op.input.DType(), op.input.Device())
	if err != nil {
		panic("narrow backward: failed to create gradient tensor")
	}

	outerSize := 1
	for i := 0; i < op.dim; i++ {
		outerSize *= shape[i]
	}
	dimSize := shape[op.dim]
	innerSize := 1
	for i := op.dim + 1; i < len(shape); i++ {
		innerSize *= shape[i]
	}

	// The window is contiguous within each outer block, so one byte copy
	// per block pastes the gradient for every dtype.
	elemSize := op.input.DType().Size()
	rowBytes := innerSize * elemSize
	dstBlock := dimSize * rowBytes
	srcBlock := op.length * rowBytes
	srcData := outputGrad.Data()
	dstData := grad.Data()

	for outer := 0; outer < outerSize; outer++ {
		srcOff := outer * srcBlock
		dstOff := outer*dstBlock + op.start*rowBytes
		copy(dstData[dstOff:dstOff+srcBlock], srcData[srcOff:srcOff+srcBlock])
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *NarrowOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the sliced tensor.
func (op *NarrowOp) Output() *tensor.RawTensor {
	return op.output
}
