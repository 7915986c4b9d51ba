// Package cpu implements the reference pure-Go compute backend.
//
// All operations work on contiguous row-major buffers. Elementwise kernels
// have an inplace fast path that reuses the left operand when its buffer is
// not shared; larger kernels (matmul, convolution, resampling) are chunked
// across goroutines through the parallel package.
package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// CPUBackend implements tensor operations on the host CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend with parallelism sized to the machine.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend that never spawns worker goroutines.
// Deterministic single-threaded execution, mainly for tests and profiling.
func NewSequential() *CPUBackend {
	cfg := parallel.DefaultConfig()
	cfg.Enabled = false
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opAdd, "add")
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opSub, "sub")
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opMul, "mul")
}

// Div performs element-wise division with broadcasting.
// Division by zero follows Go float semantics (Inf/NaN).
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(a, b, opDiv, "div")
}

// binary implements the shared control flow of the elementwise methods.
// Equal shapes take the contiguous kernel, accumulating into a's buffer
// when nothing else references it; everything else goes through the
// broadcasting gather.
func (cpu *CPUBackend) binary(a, b *tensor.RawTensor, op binOp, name string) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			applySame(a, a, b, op)
			return a
		}
		result := newResult(outShape, a.DType(), cpu.device, name)
		applySame(result, a, b, op)
		return result
	}

	result := newResult(outShape, a.DType(), cpu.device, name)
	applyBroadcast(result, a, b, outShape, op)
	return result
}

// Reshape returns a tensor with the same data but a different shape.
// The element count must be preserved.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result := newResult(newShape, t.DType(), t.Device(), "reshape")
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor dimensions. With no axes given, all
// dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := newResult(newShape, t.DType(), t.Device(), "transpose")
	transposeData(result, t, axes)
	return result
}

// newResult allocates an output tensor, panicking with the operation name on
// failure. Every forward kernel goes through this.
func newResult(shape tensor.Shape, dtype tensor.DataType, device tensor.Device, op string) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}
