package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		s := scalarToFloat32(scalar, "mulScalar")
		if x.IsUnique() {
			data := x.AsFloat32()
			for i := range data {
				data[i] *= s
			}
			return x
		}
		result := newResult(x.Shape(), x.DType(), cpu.Device(), "mulScalar")
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i := range src {
			dst[i] = src[i] * s
		}
		return result
	case tensor.Float64:
		s := scalarToFloat64(scalar, "mulScalar")
		if x.IsUnique() {
			data := x.AsFloat64()
			for i := range data {
				data[i] *= s
			}
			return x
		}
		result := newResult(x.Shape(), x.DType(), cpu.Device(), "mulScalar")
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i := range src {
			dst[i] = src[i] * s
		}
		return result
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %v", x.DType()))
	}
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		s := scalarToFloat32(scalar, "addScalar")
		if x.IsUnique() {
			data := x.AsFloat32()
			for i := range data {
				data[i] += s
			}
			return x
		}
		result := newResult(x.Shape(), x.DType(), cpu.Device(), "addScalar")
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i := range src {
			dst[i] = src[i] + s
		}
		return result
	case tensor.Float64:
		s := scalarToFloat64(scalar, "addScalar")
		if x.IsUnique() {
			data := x.AsFloat64()
			for i := range data {
				data[i] += s
			}
			return x
		}
		result := newResult(x.Shape(), x.DType(), cpu.Device(), "addScalar")
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i := range src {
			dst[i] = src[i] + s
		}
		return result
	default:
		panic(fmt.Sprintf("addScalar: unsupported dtype %v", x.DType()))
	}
}

// scalarToFloat32 converts the scalar argument to float32, accepting the
// numeric types callers actually pass.
func scalarToFloat32(scalar any, op string) float32 {
	switch s := scalar.(type) {
	case float32:
		return s
	case float64:
		return float32(s)
	case int:
		return float32(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}

func scalarToFloat64(scalar any, op string) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}
