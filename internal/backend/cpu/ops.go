package cpu

import (
	"github.com/born-ml/lumen/internal/tensor"
)

// The elementwise kernels are generic over the arithmetic dtypes and
// instantiated by the dispatch functions below from the runtime DType.
// Float kernels carry the optimization workload; int32 is covered for
// label and index tensors.

type arith interface {
	~float32 | ~float64 | ~int32
}

// binOp selects the operator applied by an elementwise kernel.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

// scalarOp returns the Go operator for op at element type T.
func scalarOp[T arith](op binOp) func(T, T) T {
	switch op {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	case opMul:
		return func(x, y T) T { return x * y }
	default:
		return func(x, y T) T { return x / y }
	}
}

// applySame runs dst = a (op) b over equal-shape operands. dst may be a
// itself, that is the inplace fast path taken when a's buffer is unique.
func applySame(dst, a, b *tensor.RawTensor, op binOp) {
	switch dst.DType() {
	case tensor.Float32:
		sliceOp(dst.AsFloat32(), a.AsFloat32(), b.AsFloat32(), scalarOp[float32](op))
	case tensor.Float64:
		sliceOp(dst.AsFloat64(), a.AsFloat64(), b.AsFloat64(), scalarOp[float64](op))
	case tensor.Int32:
		sliceOp(dst.AsInt32(), a.AsInt32(), b.AsInt32(), scalarOp[int32](op))
	default:
		panic("elementwise: unsupported dtype " + dst.DType().String())
	}
}

// applyBroadcast runs dst = a (op) b where the operands broadcast to
// outShape.
func applyBroadcast(dst, a, b *tensor.RawTensor, outShape tensor.Shape, op binOp) {
	switch dst.DType() {
	case tensor.Float32:
		broadcastOp(dst.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, scalarOp[float32](op))
	case tensor.Float64:
		broadcastOp(dst.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, scalarOp[float64](op))
	case tensor.Int32:
		broadcastOp(dst.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape, scalarOp[int32](op))
	default:
		panic("elementwise: unsupported dtype " + dst.DType().String())
	}
}

// sliceOp is the contiguous kernel: both operands share the output
// layout, so the loop is a straight pass over the slices.
func sliceOp[T arith](dst, a, b []T, op func(T, T) T) {
	for i := range dst {
		dst[i] = op(a[i], b[i])
	}
}

// broadcastOp gathers each operand through broadcast-adjusted strides
// (stride 0 on broadcast dimensions) while walking the output linearly.
func broadcastOp[T arith](dst, a, b []T, aShape, bShape, outShape tensor.Shape, op func(T, T) T) {
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	for i := range dst {
		rem := i
		aIdx, bIdx := 0, 0
		for d := range outStrides {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			aIdx += coord * aStrides[d]
			bIdx += coord * bStrides[d]
		}
		dst[i] = op(a[aIdx], b[bIdx])
	}
}

// broadcastStrides maps inShape onto outShape following NumPy alignment
// (shapes aligned from the right). Dimensions that are broadcast, either
// size 1 or missing entirely, get stride 0 so the same source element is
// read for every output coordinate along them.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	offset := outDim - len(inShape)
	origStrides := inShape.ComputeStrides()

	for i := range strides {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			strides[i] = 0
		case inShape[inIdx] == 1:
			strides[i] = 0
		default:
			strides[i] = origStrides[inIdx]
		}
	}

	return strides
}

// transposeData scatters the source into the permuted destination.
func transposeData(result, src *tensor.RawTensor, axes []int) {
	switch src.DType() {
	case tensor.Float32:
		transposeKernel(result.AsFloat32(), src.AsFloat32(), src.Shape(), axes)
	case tensor.Float64:
		transposeKernel(result.AsFloat64(), src.AsFloat64(), src.Shape(), axes)
	case tensor.Int32:
		transposeKernel(result.AsInt32(), src.AsInt32(), src.Shape(), axes)
	default:
		panic("transpose: unsupported dtype " + src.DType().String())
	}
}

// transposeKernel walks the source linearly, recovers the coordinate of
// each element, and writes it at the permuted position.
func transposeKernel[T arith](dst, src []T, shape tensor.Shape, axes []int) {
	ndim := len(shape)
	srcStrides := shape.ComputeStrides()

	dstShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = shape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	coords := make([]int, ndim)
	for i := range src {
		rem := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = rem / srcStrides[dim]
			rem %= srcStrides[dim]
		}

		dstIdx := 0
		for dstDim, srcDim := range axes {
			dstIdx += coords[srcDim] * dstStrides[dstDim]
		}

		dst[dstIdx] = src[i]
	}
}
