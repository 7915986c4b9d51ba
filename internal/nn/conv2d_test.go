package nn

import (
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/tensor"
)

// TestConv2D_Creation tests Conv2D layer creation.
func TestConv2D_Creation(t *testing.T) {
	backend := cpu.New()

	conv := NewConv2D(1, 6, 5, 5, 1, 0, true, backend)

	if conv.InChannels() != 1 {
		t.Errorf("InChannels() = %d, want 1", conv.InChannels())
	}
	if conv.OutChannels() != 6 {
		t.Errorf("OutChannels() = %d, want 6", conv.OutChannels())
	}
	if ks := conv.KernelSize(); ks[0] != 5 || ks[1] != 5 {
		t.Errorf("KernelSize() = %v, want [5 5]", ks)
	}

	// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
	if !conv.Parameters()[0].Tensor().Shape().Equal(tensor.Shape{6, 1, 5, 5}) {
		t.Errorf("weight shape = %v, want [6 1 5 5]", conv.Parameters()[0].Tensor().Shape())
	}
	if len(conv.Parameters()) != 2 {
		t.Errorf("Parameters() length = %d, want 2 (weight + bias)", len(conv.Parameters()))
	}

	noBias := NewConv2D(1, 6, 3, 3, 1, 0, false, backend)
	if len(noBias.Parameters()) != 1 {
		t.Errorf("Parameters() without bias = %d, want 1", len(noBias.Parameters()))
	}
}

// TestConv2D_InvalidConfig tests constructor validation.
func TestConv2D_InvalidConfig(t *testing.T) {
	backend := cpu.New()

	cases := []struct {
		name string
		fn   func()
	}{
		{"ZeroChannels", func() { NewConv2D(0, 6, 3, 3, 1, 0, true, backend) }},
		{"ZeroKernel", func() { NewConv2D(1, 6, 0, 3, 1, 0, true, backend) }},
		{"ZeroStride", func() { NewConv2D(1, 6, 3, 3, 0, 0, true, backend) }},
		{"NegativePadding", func() { NewConv2D(1, 6, 3, 3, 1, -1, true, backend) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			tc.fn()
		})
	}
}

// TestConv2D_ForwardShape tests output dimensions.
func TestConv2D_ForwardShape(t *testing.T) {
	backend := autodiff.New(cpu.New())

	// 3 -> 8 channels, 3x3 kernel, stride 1, padding 1 keeps spatial size.
	conv := NewConv2D(3, 8, 3, 3, 1, 1, true, backend)

	input := tensor.Randn[float32](tensor.Shape{2, 3, 16, 16}, backend)
	output := conv.Forward(input)

	if !output.Shape().Equal(tensor.Shape{2, 8, 16, 16}) {
		t.Errorf("output shape = %v, want [2 8 16 16]", output.Shape())
	}

	if size := conv.ComputeOutputSize(16, 16); size[0] != 16 || size[1] != 16 {
		t.Errorf("ComputeOutputSize(16, 16) = %v, want [16 16]", size)
	}
}

// TestConv2D_BiasBroadcast tests that bias shifts every spatial position.
func TestConv2D_BiasBroadcast(t *testing.T) {
	backend := autodiff.New(cpu.New())

	conv := NewConv2D(1, 2, 1, 1, 1, 0, true, backend)

	// 1x1 kernels [1] and [2], biases [10, 20].
	copy(conv.weight.Tensor().Raw().AsFloat32(), []float32{1, 2})
	copy(conv.bias.Tensor().Raw().AsFloat32(), []float32{10, 20})

	input, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	output := conv.Forward(input)

	expected := []float32{
		11, 12, 13, 14, // channel 0: x*1 + 10
		22, 24, 26, 28, // channel 1: x*2 + 20
	}
	actual := output.Raw().AsFloat32()
	for i, exp := range expected {
		if actual[i] != exp {
			t.Errorf("output = %v, want %v", actual, expected)
			break
		}
	}
}

// TestConv2D_StateDict tests parameter export and restore.
func TestConv2D_StateDict(t *testing.T) {
	backend := cpu.New()

	conv := NewConv2D(2, 4, 3, 3, 1, 1, true, backend)
	stateDict := conv.StateDict()

	if len(stateDict) != 2 {
		t.Fatalf("StateDict has %d entries, want 2", len(stateDict))
	}
	if !stateDict["weight"].Shape().Equal(tensor.Shape{4, 2, 3, 3}) {
		t.Errorf("weight shape = %v", stateDict["weight"].Shape())
	}

	clone := NewConv2D(2, 4, 3, 3, 1, 1, true, backend)
	if err := clone.LoadStateDict(stateDict); err != nil {
		t.Fatalf("LoadStateDict failed: %v", err)
	}

	original := conv.weight.Tensor().Raw().AsFloat32()
	loaded := clone.weight.Tensor().Raw().AsFloat32()
	for i := range original {
		if original[i] != loaded[i] {
			t.Fatal("weights differ after round trip")
		}
	}

	// Shape mismatch must be rejected.
	wrong := NewConv2D(2, 4, 5, 5, 1, 1, true, backend)
	if err := wrong.LoadStateDict(stateDict); err == nil {
		t.Error("expected shape mismatch error")
	}
}
