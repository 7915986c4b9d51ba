package ops

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// reduceBroadcast reduces a gradient to the given target shape, undoing the
// broadcasting that happened in the forward pass.
//
// Forward: a[3,1] + b[3,4] -> c[3,4] broadcasts a along dim 1, so the
// backward pass sums grad_c along dim 1 to recover grad_a[3,1].
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone when shapes already match so later inplace accumulation cannot
	// alias the shared output gradient.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Broadcasting aligns shapes from the right: first fold away the extra
	// leading dimensions, then the dimensions the target holds at size 1.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = sumAlongDimension(result, 0)
		result = backend.Reshape(result, result.Shape()[1:])
	}

	resultShape := result.Shape()
	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && resultShape[i] > 1 {
			result = sumAlongDimension(result, i)
			resultShape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// sumAlongDimension sums a tensor along one dimension, keeping it at size 1.
func sumAlongDimension(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = 1

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: failed to create result: %v", err))
	}

	outerSize := 1
	for i := 0; i < dim; i++ {
		outerSize *= shape[i]
	}
	dimSize := shape[dim]
	innerSize := 1
	for i := dim + 1; i < len(shape); i++ {
		innerSize *= shape[i]
	}

	switch t.DType() {
	case tensor.Float32:
		src := t.AsFloat32()
		dst := result.AsFloat32()
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
	case tensor.Float64:
		src := t.AsFloat64()
		dst := result.AsFloat64()
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
	default:
		panic(fmt.Sprintf("sumAlongDimension: unsupported dtype %s", t.DType()))
	}

	return result
}

// negateGradient returns -grad without touching the original buffer.
func negateGradient(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	zeros, err := tensor.NewRaw(grad.Shape(), grad.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("negateGradient: failed to create zeros: %v", err))
	}
	return backend.Sub(zeros, grad)
}

// scaleInplace multiplies a freshly allocated gradient by a constant.
func scaleInplace(t *tensor.RawTensor, factor float64) {
	switch t.DType() {
	case tensor.Float32:
		data := t.AsFloat32()
		f := float32(factor)
		for i := range data {
			data[i] *= f
		}
	case tensor.Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] *= factor
		}
	}
}
