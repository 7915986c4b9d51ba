package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// Sum computes the total sum of all elements. The result has shape [1].
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := newResult(tensor.Shape{1}, x.DType(), cpu.Device(), "sum")

	switch x.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range x.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Float64:
		var sum float64
		for _, v := range x.AsFloat64() {
			sum += v
		}
		result.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %v", x.DType()))
	}

	return result
}

// Mean computes the mean of all elements. The result has shape [1].
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	n := x.Shape().NumElements()
	if n == 0 {
		panic("mean: empty tensor")
	}

	result := cpu.Sum(x)
	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] /= float32(n)
	case tensor.Float64:
		result.AsFloat64()[0] /= float64(n)
	}
	return result
}

// SumDim sums along a single dimension. With keepDim the reduced dimension
// stays in the shape with size 1, otherwise it is removed.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumDim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outerSize, dimSize, innerSize := splitAtDim(shape, dim)
	result := newResult(reducedShape(shape, dim, keepDim), x.DType(), cpu.Device(), "sumDim")

	switch x.DType() {
	case tensor.Float32:
		sumDimFloat32(result.AsFloat32(), x.AsFloat32(), outerSize, dimSize, innerSize)
	case tensor.Float64:
		sumDimFloat64(result.AsFloat64(), x.AsFloat64(), outerSize, dimSize, innerSize)
	default:
		panic(fmt.Sprintf("sumDim: unsupported dtype %v", x.DType()))
	}

	return result
}

// MeanDim averages along a single dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("meanDim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result := cpu.SumDim(x, dim, keepDim)
	dimSize := shape[dim]

	switch x.DType() {
	case tensor.Float32:
		data := result.AsFloat32()
		inv := 1.0 / float32(dimSize)
		for i := range data {
			data[i] *= inv
		}
	case tensor.Float64:
		data := result.AsFloat64()
		inv := 1.0 / float64(dimSize)
		for i := range data {
			data[i] *= inv
		}
	}

	return result
}

// Argmax returns the index of the maximum value along a dimension. The
// reduced dimension is removed from the shape and the result dtype is Int32.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outerSize, dimSize, innerSize := splitAtDim(shape, dim)
	result := newResult(reducedShape(shape, dim, false), tensor.Int32, cpu.Device(), "argmax")

	switch x.DType() {
	case tensor.Float32:
		argmaxFloat32(result.AsInt32(), x.AsFloat32(), outerSize, dimSize, innerSize)
	case tensor.Float64:
		argmaxFloat64(result.AsInt32(), x.AsFloat64(), outerSize, dimSize, innerSize)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %v", x.DType()))
	}

	return result
}

// splitAtDim decomposes a shape into the element counts before, at, and
// after the given dimension.
func splitAtDim(shape tensor.Shape, dim int) (outerSize, dimSize, innerSize int) {
	outerSize = 1
	for i := 0; i < dim; i++ {
		outerSize *= shape[i]
	}
	dimSize = shape[dim]
	innerSize = 1
	for i := dim + 1; i < len(shape); i++ {
		innerSize *= shape[i]
	}
	return outerSize, dimSize, innerSize
}

// reducedShape computes the output shape of a reduction along dim. Reducing
// the only dimension of a 1D tensor yields shape [1] rather than a scalar.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := make(tensor.Shape, len(shape))
		copy(out, shape)
		out[dim] = 1
		return out
	}

	out := make(tensor.Shape, 0, len(shape)-1)
	for i, s := range shape {
		if i != dim {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}

func sumDimFloat32(dst, src []float32, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			var sum float32
			for j := 0; j < dimSize; j++ {
				sum += src[base+j*innerSize+inner]
			}
			dst[outer*innerSize+inner] = sum
		}
	}
}

func sumDimFloat64(dst, src []float64, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			var sum float64
			for j := 0; j < dimSize; j++ {
				sum += src[base+j*innerSize+inner]
			}
			dst[outer*innerSize+inner] = sum
		}
	}
}

func argmaxFloat32(dst []int32, src []float32, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			maxIdx := 0
			maxVal := src[base+inner]
			for j := 1; j < dimSize; j++ {
				if v := src[base+j*innerSize+inner]; v > maxVal {
					maxVal = v
					maxIdx = j
				}
			}
			dst[outer*innerSize+inner] = int32(maxIdx) //nolint:gosec // Dimension sizes fit in int32.
		}
	}
}

func argmaxFloat64(dst []int32, src []float64, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			maxIdx := 0
			maxVal := src[base+inner]
			for j := 1; j < dimSize; j++ {
				if v := src[base+j*innerSize+inner]; v > maxVal {
					maxVal = v
					maxIdx = j
				}
			}
			dst[outer*innerSize+inner] = int32(maxIdx) //nolint:gosec // Dimension sizes fit in int32.
		}
	}
}
