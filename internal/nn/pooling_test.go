package nn

import (
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/tensor"
)

// TestMaxPool2D_Creation tests MaxPool2D layer creation.
func TestMaxPool2D_Creation(t *testing.T) {
	backend := cpu.New()

	pool := NewMaxPool2D(2, 2, backend)

	if pool.KernelSize() != 2 {
		t.Errorf("KernelSize() = %d, want 2", pool.KernelSize())
	}
	if pool.Stride() != 2 {
		t.Errorf("Stride() = %d, want 2", pool.Stride())
	}
	if len(pool.Parameters()) != 0 {
		t.Errorf("Parameters() = %d, want 0", len(pool.Parameters()))
	}
	if size := pool.ComputeOutputSize(28, 28); size[0] != 14 || size[1] != 14 {
		t.Errorf("ComputeOutputSize(28, 28) = %v, want [14 14]", size)
	}
}

// TestMaxPool2D_Forward tests max pooling values.
func TestMaxPool2D_Forward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	pool := NewMaxPool2D(2, 2, backend)

	input, _ := tensor.FromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4}, backend)

	output := pool.Forward(input)

	if !output.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("output shape = %v, want [1 1 2 2]", output.Shape())
	}

	expected := []float32{6, 8, 14, 16}
	for i, exp := range expected {
		if output.Raw().AsFloat32()[i] != exp {
			t.Errorf("output = %v, want %v", output.Raw().AsFloat32(), expected)
			break
		}
	}
}

// TestAvgPool2D_Forward tests average pooling values.
func TestAvgPool2D_Forward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	pool := NewAvgPool2D(2, 2, backend)

	input, _ := tensor.FromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4}, backend)

	output := pool.Forward(input)

	if !output.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("output shape = %v, want [1 1 2 2]", output.Shape())
	}

	expected := []float32{3.5, 5.5, 11.5, 13.5}
	for i, exp := range expected {
		if output.Raw().AsFloat32()[i] != exp {
			t.Errorf("output = %v, want %v", output.Raw().AsFloat32(), expected)
			break
		}
	}
}

// TestAvgPool2D_Global tests global average pooling before a classifier.
func TestAvgPool2D_Global(t *testing.T) {
	backend := autodiff.New(cpu.New())

	// Kernel size equals spatial size: one value per channel.
	pool := NewAvgPool2D(4, 4, backend)

	input := tensor.Ones[float32](tensor.Shape{2, 3, 4, 4}, backend)
	output := pool.Forward(input)

	if !output.Shape().Equal(tensor.Shape{2, 3, 1, 1}) {
		t.Fatalf("output shape = %v, want [2 3 1 1]", output.Shape())
	}
	for i, v := range output.Raw().AsFloat32() {
		if v != 1 {
			t.Errorf("output[%d] = %f, want 1", i, v)
		}
	}
}

// TestGlobalAvgPool2D tests size-independent pooling.
func TestGlobalAvgPool2D(t *testing.T) {
	backend := autodiff.New(cpu.New())

	pool := NewGlobalAvgPool2D[*autodiff.AutodiffBackend[*cpu.CPUBackend]]()

	input, _ := tensor.FromSlice([]float32{
		1, 2,
		3, 4,

		10, 20,
		30, 40,
	}, tensor.Shape{1, 2, 2, 2}, backend)

	output := pool.Forward(input)

	if !output.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("output shape = %v, want [1 2]", output.Shape())
	}
	want := []float32{2.5, 25}
	for i, exp := range want {
		if output.Raw().AsFloat32()[i] != exp {
			t.Errorf("output = %v, want %v", output.Raw().AsFloat32(), want)
			break
		}
	}

	// The same layer handles a different spatial size.
	bigger := tensor.Ones[float32](tensor.Shape{2, 3, 5, 7}, backend)
	if got := pool.Forward(bigger).Shape(); !got.Equal(tensor.Shape{2, 3}) {
		t.Errorf("output shape = %v, want [2 3]", got)
	}
}

// TestPooling_InvalidInput tests dimension validation.
func TestPooling_InvalidInput(t *testing.T) {
	backend := autodiff.New(cpu.New())

	t.Run("MaxPool3DInput", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for non-4D input")
			}
		}()
		input := tensor.Randn[float32](tensor.Shape{1, 4, 4}, backend)
		NewMaxPool2D(2, 2, backend).Forward(input)
	})

	t.Run("AvgPoolZeroKernel", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for zero kernel")
			}
		}()
		NewAvgPool2D(0, 2, backend)
	})
}
