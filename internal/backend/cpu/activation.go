package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/lumen/internal/tensor"
)

// Softmax computes softmax along the given dimension.
//
// The max value of each slice is subtracted before exponentiation for
// numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result := newResult(shape, x.DType(), cpu.Device(), "softmax")

	outerSize := 1
	for i := 0; i < dim; i++ {
		outerSize *= shape[i]
	}
	dimSize := shape[dim]
	innerSize := 1
	for i := dim + 1; i < ndim; i++ {
		innerSize *= shape[i]
	}

	switch x.DType() {
	case tensor.Float32:
		softmaxFloat32(result.AsFloat32(), x.AsFloat32(), outerSize, dimSize, innerSize)
	case tensor.Float64:
		softmaxFloat64(result.AsFloat64(), x.AsFloat64(), outerSize, dimSize, innerSize)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %v", x.DType()))
	}

	return result
}

func softmaxFloat32(dst, src []float32, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			offset := base + inner

			maxVal := src[offset]
			for j := 1; j < dimSize; j++ {
				if v := src[offset+j*innerSize]; v > maxVal {
					maxVal = v
				}
			}

			var sum float32
			for j := 0; j < dimSize; j++ {
				e := float32(math.Exp(float64(src[offset+j*innerSize] - maxVal)))
				dst[offset+j*innerSize] = e
				sum += e
			}

			invSum := 1.0 / sum
			for j := 0; j < dimSize; j++ {
				dst[offset+j*innerSize] *= invSum
			}
		}
	}
}

func softmaxFloat64(dst, src []float64, outerSize, dimSize, innerSize int) {
	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			offset := base + inner

			maxVal := src[offset]
			for j := 1; j < dimSize; j++ {
				if v := src[offset+j*innerSize]; v > maxVal {
					maxVal = v
				}
			}

			var sum float64
			for j := 0; j < dimSize; j++ {
				e := math.Exp(src[offset+j*innerSize] - maxVal)
				dst[offset+j*innerSize] = e
				sum += e
			}

			invSum := 1.0 / sum
			for j := 0; j < dimSize; j++ {
				dst[offset+j*innerSize] *= invSum
			}
		}
	}
}
