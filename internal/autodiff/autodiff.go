// Package autodiff implements automatic differentiation as a backend
// decorator.
//
// AutodiffBackend wraps any Backend implementation and records every
// differentiable operation on a GradientTape during the forward pass.
// Walking the tape in reverse applies the chain rule and yields gradients
// for all participating tensors.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend
//   - GradientTape: records operations in execution order
//   - ops.Operation: each op knows its own backward rule
//   - Reverse-mode AD: one backward sweep per output
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x := tensor.Rand[float32](tensor.Shape{1, 3, 64, 64}, backend)
//	y := x.MulScalar(2.0).Sum()
//
//	grads := autodiff.Backward(y, backend)
//	fmt.Println(grads[x.Raw()]) // d(2·Σx)/dx = 2 everywhere
package autodiff

import (
	"math"

	"github.com/born-ml/lumen/internal/autodiff/ops"
	"github.com/born-ml/lumen/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds gradient tracking. It satisfies
// tensor.Backend itself, so models built against the interface switch
// between plain execution and recorded execution by construction alone.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for recording control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
//
// ForceNonUnique keeps the inner backend from taking its inplace fast
// path: a tensor mutated in place would corrupt every op on the tape that
// captured it.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Add(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Sub(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Mul(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Div(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.MatMul(x, y)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// Conv2D performs 2D convolution and records the operation.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	defer input.ForceNonUnique()()
	defer kernel.ForceNonUnique()()

	result := b.inner.Conv2D(input, kernel, stride, padding)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	}
	return result
}

// Conv2DInputBackward delegates to the inner backend. Gradient kernels are
// never themselves differentiated.
func (b *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// MaxPool2D performs max pooling and records the operation. The op captures
// the window max positions for gradient routing.
func (b *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	defer input.ForceNonUnique()()

	result := b.inner.MaxPool2D(input, kernelSize, stride)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMaxPool2DOp(input, result, kernelSize, stride))
	}
	return result
}

// MaxPool2DBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int, kernelSize, stride int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, grad, maxIndices, kernelSize, stride)
}

// AvgPool2D performs average pooling and records the operation.
func (b *AutodiffBackend[B]) AvgPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	defer input.ForceNonUnique()()

	result := b.inner.AvgPool2D(input, kernelSize, stride)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAvgPool2DOp(input, result, kernelSize, stride))
	}
	return result
}

// AvgPool2DBackward delegates to the inner backend.
func (b *AutodiffBackend[B]) AvgPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.inner.AvgPool2DBackward(input, grad, kernelSize, stride)
}

// Softmax applies softmax along dim and records the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim += len(x.Shape())
	}
	result := b.inner.Softmax(x, dim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSoftmaxOp(x, result, dim))
	}
	return result
}

// Reshape changes the tensor shape and records the operation, so gradients
// reach the original tensor rather than stopping at the backend's copy.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Reshape(x, newShape)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, result))
	}
	return result
}

// Transpose permutes dimensions and records the operation.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	ndim := len(x.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(x, axes...)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(x, result, axes))
	}
	return result
}

// Narrow slices a contiguous range along one dimension and records the
// operation.
func (b *AutodiffBackend[B]) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim += len(x.Shape())
	}
	result := b.inner.Narrow(x, dim, start, length)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNarrowOp(x, result, dim, start, length))
	}
	return result
}

// Pad2D pads the spatial dimensions and records the operation.
func (b *AutodiffBackend[B]) Pad2D(x *tensor.RawTensor, top, bottom, left, right int, mode tensor.PadMode) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Pad2D(x, top, bottom, left, right, mode)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewPad2DOp(x, result, top, left, mode))
	}
	return result
}

// Upsample2D resizes with bilinear interpolation and records the operation.
func (b *AutodiffBackend[B]) Upsample2D(x *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Upsample2D(x, outH, outW)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewUpsample2DOp(x, result))
	}
	return result
}

// MulScalar multiplies by a scalar and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.MulScalar(x, scalar)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	}
	return result
}

// AddScalar adds a scalar and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.AddScalar(x, scalar)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddScalarOp(x, result))
	}
	return result
}

// Sum reduces all elements to shape [1] and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Sum(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, result))
	}
	return result
}

// Mean reduces all elements to their mean and records the operation.
func (b *AutodiffBackend[B]) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Mean(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanOp(x, result))
	}
	return result
}

// SumDim sums along one dimension and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim += len(x.Shape())
	}
	result := b.inner.SumDim(x, dim, keepDim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	}
	return result
}

// MeanDim averages along one dimension and records the operation.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim += len(x.Shape())
	}
	result := b.inner.MeanDim(x, dim, keepDim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanDimOp(x, result, dim, keepDim))
	}
	return result
}

// Argmax delegates to the inner backend without recording; index selection
// has no useful gradient.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// ReLU applies max(0, x) and records the operation.
//
// The activations are not part of the base Backend interface; callers
// discover them on the autodiff backend via interface assertion.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := mapElementwise(x, b.Device(), "relu",
		func(v float32) float32 {
			if v > 0 {
				return v
			}
			return 0
		},
		func(v float64) float64 {
			if v > 0 {
				return v
			}
			return 0
		})

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReLUOp(x, result))
	}
	return result
}

// Sigmoid applies 1/(1+exp(-x)) and records the operation.
func (b *AutodiffBackend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := mapElementwise(x, b.Device(), "sigmoid",
		func(v float32) float32 {
			return float32(1.0 / (1.0 + math.Exp(float64(-v))))
		},
		func(v float64) float64 {
			return 1.0 / (1.0 + math.Exp(-v))
		})

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSigmoidOp(x, result))
	}
	return result
}

// Tanh applies the hyperbolic tangent and records the operation.
func (b *AutodiffBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := mapElementwise(x, b.Device(), "tanh",
		func(v float32) float32 {
			return float32(math.Tanh(float64(v)))
		},
		math.Tanh)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTanhOp(x, result))
	}
	return result
}

// CrossEntropy computes mean negative log-likelihood over a batch and
// records the operation. Targets carry class indices and receive no
// gradient.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	defer logits.ForceNonUnique()()

	result := ops.CrossEntropyForward(logits, targets, b.Device())

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCrossEntropyOp(logits, targets, result))
	}
	return result
}

// mapElementwise applies an elementwise function per dtype into a fresh
// tensor.
func mapElementwise(x *tensor.RawTensor, device tensor.Device, op string, f32 func(float32) float32, f64 func(float64) float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), device)
	if err != nil {
		panic(op + ": failed to create result tensor")
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = f32(v)
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = f64(v)
		}
	default:
		panic(op + ": unsupported dtype")
	}

	return result
}
