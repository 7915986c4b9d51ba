package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a simple backend for testing the tensor layer without
// importing a real compute backend. Element-wise arithmetic, matmul,
// shape operations, and reductions are implemented naively; the
// convolutional and spatial kernels panic, their coverage lives with
// the CPU backend.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	return CPU
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// elementWise performs element-wise operations with broadcasting.
func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := NewRaw(outShape, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	numElements := outShape.NumElements()

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, numElements)

	for i := 0; i < numElements; i++ {
		aIdx := m.broadcastIndex(i, outShape, a.Shape())
		bIdx := m.broadcastIndex(i, outShape, b.Shape())

		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// MatMul performs 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic("MatMul only supports 2D tensors in mock backend")
	}

	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("incompatible shapes for MatMul: %v @ %v", aShape, bShape))
	}

	M, K := aShape[0], aShape[1]
	N := bShape[1]

	result, err := NewRaw(Shape{M, N}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, M*N)

	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			sum := 0.0
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			resultData[i*N+j] = sum
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Conv2D is not implemented in the mock backend.
func (m *MockBackend) Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor {
	panic("Conv2D not implemented in mock backend")
}

// Conv2DInputBackward is not implemented in the mock backend.
func (m *MockBackend) Conv2DInputBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor {
	panic("Conv2DInputBackward not implemented in mock backend")
}

// Conv2DKernelBackward is not implemented in the mock backend.
func (m *MockBackend) Conv2DKernelBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor {
	panic("Conv2DKernelBackward not implemented in mock backend")
}

// MaxPool2D is not implemented in the mock backend.
func (m *MockBackend) MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor {
	panic("MaxPool2D not implemented in mock backend")
}

// MaxPool2DBackward is not implemented in the mock backend.
func (m *MockBackend) MaxPool2DBackward(input, outputGrad *RawTensor, maxIndices []int, kernelSize, stride int) *RawTensor {
	panic("MaxPool2DBackward not implemented in mock backend")
}

// AvgPool2D is not implemented in the mock backend.
func (m *MockBackend) AvgPool2D(input *RawTensor, kernelSize, stride int) *RawTensor {
	panic("AvgPool2D not implemented in mock backend")
}

// AvgPool2DBackward is not implemented in the mock backend.
func (m *MockBackend) AvgPool2DBackward(input, outputGrad *RawTensor, kernelSize, stride int) *RawTensor {
	panic("AvgPool2DBackward not implemented in mock backend")
}

// Softmax applies softmax along the given dimension.
func (m *MockBackend) Softmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result, err := NewRaw(shape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	outerSize, dimSize, innerSize := m.splitAtDim(shape, dim)
	src := m.toFloat64Slice(x)
	dst := make([]float64, len(src))

	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			maxVal := math.Inf(-1)
			for j := 0; j < dimSize; j++ {
				if v := src[base+j*innerSize+inner]; v > maxVal {
					maxVal = v
				}
			}
			sum := 0.0
			for j := 0; j < dimSize; j++ {
				e := math.Exp(src[base+j*innerSize+inner] - maxVal)
				dst[base+j*innerSize+inner] = e
				sum += e
			}
			for j := 0; j < dimSize; j++ {
				dst[base+j*innerSize+inner] /= sum
			}
		}
	}

	m.fromFloat64Slice(dst, result)
	return result
}

// Reshape changes the tensor shape.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(err)
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("cannot reshape tensor with %d elements to shape %v (%d elements)",
			t.NumElements(), newShape, newShape.NumElements()))
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor dimensions.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()

	// Default: reverse all dimensions
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}

	if len(axes) != len(shape) {
		panic(fmt.Sprintf("axes length %d doesn't match tensor dimensions %d", len(axes), len(shape)))
	}

	newShape := make(Shape, len(shape))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) {
			panic(fmt.Sprintf("axis %d out of bounds for tensor with %d dimensions", axis, len(shape)))
		}
		newShape[i] = shape[axis]
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	tData := m.toFloat64Slice(t)
	resultData := make([]float64, len(tData))

	oldStrides := shape.ComputeStrides()
	newStrides := newShape.ComputeStrides()

	for i := 0; i < t.NumElements(); i++ {
		indices := make([]int, len(shape))
		temp := i
		for j := 0; j < len(shape); j++ {
			indices[j] = temp / oldStrides[j]
			temp %= oldStrides[j]
		}

		newIdx := 0
		for j, axis := range axes {
			newIdx += indices[axis] * newStrides[j]
		}

		resultData[newIdx] = tData[i]
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Narrow selects [start, start+length) along dim, copying the data.
func (m *MockBackend) Narrow(x *RawTensor, dim, start, length int) *RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("narrow: dimension %d out of range for %dD tensor", dim, len(shape)))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension of size %d", start, start+length, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length

	result, err := NewRaw(outShape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	outerSize, _, innerSize := m.splitAtDim(shape, dim)
	src := m.toFloat64Slice(x)
	dst := make([]float64, outShape.NumElements())

	for outer := 0; outer < outerSize; outer++ {
		srcBase := (outer*shape[dim] + start) * innerSize
		dstBase := outer * length * innerSize
		for j := 0; j < length*innerSize; j++ {
			dst[dstBase+j] = src[srcBase+j]
		}
	}

	m.fromFloat64Slice(dst, result)
	return result
}

// Pad2D is not implemented in the mock backend.
func (m *MockBackend) Pad2D(x *RawTensor, top, bottom, left, right int, mode PadMode) *RawTensor {
	panic("Pad2D not implemented in mock backend")
}

// Upsample2D is not implemented in the mock backend.
func (m *MockBackend) Upsample2D(x *RawTensor, outH, outW int) *RawTensor {
	panic("Upsample2D not implemented in mock backend")
}

// MulScalar multiplies every element by a scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar any) *RawTensor {
	s := m.scalarToFloat64(scalar)
	return m.mapElements(x, func(v float64) float64 { return v * s })
}

// AddScalar adds a scalar to every element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar any) *RawTensor {
	s := m.scalarToFloat64(scalar)
	return m.mapElements(x, func(v float64) float64 { return v + s })
}

// Sum computes the total sum. The result has shape [1].
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	result, err := NewRaw(Shape{1}, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	sum := 0.0
	for _, v := range m.toFloat64Slice(x) {
		sum += v
	}
	m.fromFloat64Slice([]float64{sum}, result)
	return result
}

// SumDim sums along a single dimension.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, func(sum float64, _ int) float64 { return sum })
}

// Mean computes the mean of all elements. The result has shape [1].
func (m *MockBackend) Mean(x *RawTensor) *RawTensor {
	result := m.Sum(x)
	n := float64(x.NumElements())
	m.fromFloat64Slice([]float64{m.toFloat64Slice(result)[0] / n}, result)
	return result
}

// MeanDim averages along a single dimension.
func (m *MockBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, func(sum float64, dimSize int) float64 { return sum / float64(dimSize) })
}

// reduceDim sums along dim and applies finish to each window sum.
func (m *MockBackend) reduceDim(x *RawTensor, dim int, keepDim bool, finish func(sum float64, dimSize int) float64) *RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("reduce: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result, err := NewRaw(m.reducedShape(shape, dim, keepDim), x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	outerSize, dimSize, innerSize := m.splitAtDim(shape, dim)
	src := m.toFloat64Slice(x)
	dst := make([]float64, result.NumElements())

	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			sum := 0.0
			for j := 0; j < dimSize; j++ {
				sum += src[base+j*innerSize+inner]
			}
			dst[outer*innerSize+inner] = finish(sum, dimSize)
		}
	}

	m.fromFloat64Slice(dst, result)
	return result
}

// Argmax returns the index of the maximum value along dim. The reduced
// dimension is removed and the result dtype is Int32.
func (m *MockBackend) Argmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	result, err := NewRaw(m.reducedShape(shape, dim, false), Int32, m.Device())
	if err != nil {
		panic(err)
	}

	outerSize, dimSize, innerSize := m.splitAtDim(shape, dim)
	src := m.toFloat64Slice(x)
	dst := result.AsInt32()

	for outer := 0; outer < outerSize; outer++ {
		base := outer * dimSize * innerSize
		for inner := 0; inner < innerSize; inner++ {
			best := 0
			bestVal := src[base+inner]
			for j := 1; j < dimSize; j++ {
				if v := src[base+j*innerSize+inner]; v > bestVal {
					bestVal = v
					best = j
				}
			}
			dst[outer*innerSize+inner] = int32(best) //nolint:gosec // G115: index fits int32
		}
	}

	return result
}

// Helper functions

func (m *MockBackend) mapElements(x *RawTensor, op func(float64) float64) *RawTensor {
	result, err := NewRaw(x.Shape(), x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	src := m.toFloat64Slice(x)
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = op(v)
	}
	m.fromFloat64Slice(dst, result)
	return result
}

func (m *MockBackend) splitAtDim(shape Shape, dim int) (outerSize, dimSize, innerSize int) {
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

func (m *MockBackend) reducedShape(shape Shape, dim int, keepDim bool) Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}

	out := make(Shape, 0, len(shape)-1)
	for i, s := range shape {
		if i != dim {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = Shape{1}
	}
	return out
}

func (m *MockBackend) scalarToFloat64(scalar any) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int32:
		return float64(s)
	case uint8:
		return float64(s)
	default:
		panic(fmt.Sprintf("unsupported scalar type %T", scalar))
	}
}

func (m *MockBackend) toFloat64Slice(t *RawTensor) []float64 {
	switch t.DType() {
	case Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Float64:
		return t.AsFloat64()
	case Int32:
		src := t.AsInt32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	default:
		panic(fmt.Sprintf("unsupported dtype: %s", t.DType()))
	}
}

func (m *MockBackend) fromFloat64Slice(src []float64, t *RawTensor) {
	switch t.DType() {
	case Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case Float64:
		copy(t.AsFloat64(), src)
	case Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	}
}

func (m *MockBackend) broadcastIndex(flatIdx int, outShape, inShape Shape) int {
	outStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))

	temp := flatIdx
	for i := 0; i < len(outShape); i++ {
		indices[i] = temp / outStrides[i]
		temp %= outStrides[i]
	}

	inStrides := inShape.ComputeStrides()
	inIdx := 0

	offset := len(outShape) - len(inShape)
	for i := 0; i < len(inShape); i++ {
		outDimIdx := indices[offset+i]

		// If the input dimension is 1, always use index 0 (broadcasting)
		if inShape[i] == 1 {
			outDimIdx = 0
		}

		inIdx += outDimIdx * inStrides[i]
	}

	return inIdx
}
