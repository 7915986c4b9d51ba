package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// Narrow returns a copy of a contiguous range along one dimension, like
// slicing x[..., start:start+length, ...] at dim. Channel and batch
// selection in feature extraction is built on this.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("narrow: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d:%d] out of bounds for dimension of size %d",
			start, start+length, shape[dim]))
	}

	outShape := make(tensor.Shape, ndim)
	copy(outShape, shape)
	outShape[dim] = length

	result := newResult(outShape, x.DType(), cpu.Device(), "narrow")

	outerSize, dimSize, innerSize := splitAtDim(shape, dim)
	elemSize := x.DType().Size()

	// The selected range is contiguous within each outer block, so a single
	// byte copy per block covers every dtype.
	rowBytes := innerSize * elemSize
	srcBlock := dimSize * rowBytes
	dstBlock := length * rowBytes
	srcData := x.Data()
	dstData := result.Data()

	for outer := 0; outer < outerSize; outer++ {
		srcOff := outer*srcBlock + start*rowBytes
		dstOff := outer * dstBlock
		copy(dstData[dstOff:dstOff+dstBlock], srcData[srcOff:srcOff+dstBlock])
	}

	return result
}
