package tensor

import (
	"fmt"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Fresh buffers are already zeroed.
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones (true for bool tensors).
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full(shape, one[T](), b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full(Shape{3, 3}, float32(3.14), backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// one returns the multiplicative identity of T.
func one[T DType]() T {
	var dummy T
	var v any
	switch any(dummy).(type) {
	case float32:
		v = float32(1)
	case float64:
		v = float64(1)
	case int32:
		v = int32(1)
	case uint8:
		v = uint8(1)
	case bool:
		v = true
	}
	return v.(T)
}

// Randn creates a tensor with samples from the standard normal
// distribution. Only float tensors are supported.
//
// Initialization uses math/rand rather than crypto/rand: renders and
// training runs want seedable, reproducible noise.
//
// Example:
//
//	t := tensor.Randn[float32](Shape{1, 3, 128, 128}, backend)
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	fillFloat(t, "Randn", rand.NormFloat64) //nolint:gosec // G404: seedable noise, not crypto
	return t
}

// Rand creates a tensor with samples uniform in [0, 1).
// Only float tensors are supported.
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	fillFloat(t, "Rand", rand.Float64) //nolint:gosec // G404: seedable noise, not crypto
	return t
}

// fillFloat fills a float tensor from gen.
func fillFloat[T DType, B Backend](t *Tensor[T, B], name string, gen func() float64) {
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(gen())
		}
	case []float64:
		for i := range data {
			data[i] = gen()
		}
	default:
		panic(name + " only supports float32 and float64 types")
	}
}

// Arange creates a 1D tensor counting from start to end (exclusive) in
// steps of one. Supported for the numeric dtypes.
//
// Example:
//
//	t := tensor.Arange[int32](0, 10, backend) // [0, 1, 2, ..., 9]
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	n := int(scalarFloat(end, "Arange") - scalarFloat(start, "Arange"))
	if n <= 0 {
		panic("end must be greater than start")
	}

	t := Zeros[T, B](Shape{n}, b)
	switch data := any(t.Data()).(type) {
	case []float32:
		s := any(start).(float32)
		for i := range data {
			data[i] = s + float32(i)
		}
	case []float64:
		s := any(start).(float64)
		for i := range data {
			data[i] = s + float64(i)
		}
	case []int32:
		s := any(start).(int32)
		for i := range data {
			data[i] = s + int32(i) //nolint:gosec // G115: i < n fits int32
		}
	case []uint8:
		s := any(start).(uint8)
		for i := range data {
			data[i] = s + uint8(i) //nolint:gosec // G115: i < 256 for valid uint8 ranges
		}
	}
	return t
}

// scalarFloat widens a numeric scalar of type T to float64.
func scalarFloat[T DType](v T, name string) float64 {
	switch s := any(v).(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int32:
		return float64(s)
	case uint8:
		return float64(s)
	default:
		panic(fmt.Sprintf("%s not supported for this type", name))
	}
}
