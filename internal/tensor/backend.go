package tensor

// PadMode selects how Pad2D fills the padded border.
type PadMode int

// Supported padding modes.
const (
	PadConstant PadMode = iota // fill with zeros
	PadReflect                 // mirror interior values across the edge
)

// String returns a human-readable padding mode name.
func (m PadMode) String() string {
	switch m {
	case PadConstant:
		return "constant"
	case PadReflect:
		return "reflect"
	default:
		return "unknown"
	}
}

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The operation set is curated for convolutional networks and image-space
// optimization: element-wise arithmetic, convolution and pooling, activation
// functions, slicing and spatial resampling, and the reductions objective
// functions are built from.
//
// Implementations:
//   - CPU: pure Go reference backend
//   - AutodiffBackend: decorator recording operations onto a gradient tape
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations (2D)
	MatMul(a, b *RawTensor) *RawTensor

	// Convolutional operations
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	// Conv2DInputBackward computes the gradient of Conv2D w.r.t. its input
	// ("transposed convolution" of outputGrad with the kernel).
	Conv2DInputBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor
	// Conv2DKernelBackward computes the gradient of Conv2D w.r.t. its kernel.
	Conv2DKernelBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor
	// MaxPool2DBackward routes outputGrad to the positions recorded in
	// maxIndices during the forward pass; all other positions get zero.
	MaxPool2DBackward(input, outputGrad *RawTensor, maxIndices []int, kernelSize, stride int) *RawTensor
	AvgPool2D(input *RawTensor, kernelSize, stride int) *RawTensor
	// AvgPool2DBackward spreads outputGrad uniformly over each pooling window.
	AvgPool2DBackward(input, outputGrad *RawTensor, kernelSize, stride int) *RawTensor

	// Activation functions. ReLU, Sigmoid and Tanh are not part of the base
	// interface; backends that support them (the autodiff decorator) expose
	// them as extra methods discovered via interface assertion.
	Softmax(x *RawTensor, dim int) *RawTensor // softmax along dimension

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Narrow selects a contiguous range [start, start+length) along dim.
	// Serves channel/neuron/batch selection in objectives and crop transforms.
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// Spatial operations on NCHW tensors
	Pad2D(x *RawTensor, top, bottom, left, right int, mode PadMode) *RawTensor
	Upsample2D(x *RawTensor, outH, outW int) *RawTensor // bilinear, align-corners

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                            // total sum, shape [1]
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	Mean(x *RawTensor) *RawTensor                           // total mean, shape [1]
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension
	Argmax(x *RawTensor, dim int) *RawTensor                // index of maximum value along dimension

	// Metadata
	Name() string
	Device() Device
}
