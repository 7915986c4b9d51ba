package nn_test

import (
	"math"
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// Helper to check if values are approximately equal.
func floatEqual(a, b, epsilon float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// TestParameter tests Parameter creation and methods.
func TestParameter(t *testing.T) {
	backend := autodiff.New(cpu.New())

	data, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	param := nn.NewParameter("test_param", data)

	if param.Name() != "test_param" {
		t.Errorf("Name() = %s, want test_param", param.Name())
	}
	if param.Tensor() != data {
		t.Error("Tensor() should return the original tensor")
	}
	if param.Grad() != nil {
		t.Error("Grad() should initially be nil")
	}

	grad, _ := tensor.FromSlice([]float32{0.1, 0.2, 0.3}, tensor.Shape{3}, backend)
	param.SetGrad(grad)
	if param.Grad() != grad {
		t.Error("SetGrad() should set the gradient")
	}

	param.ZeroGrad()
	if param.Grad() != nil {
		t.Error("ZeroGrad() should clear the gradient")
	}
}

// TestLinear_Creation tests Linear layer initialization.
func TestLinear_Creation(t *testing.T) {
	backend := autodiff.New(cpu.New())

	layer := nn.NewLinear(10, 5, backend)

	if layer.InFeatures() != 10 {
		t.Errorf("InFeatures() = %d, want 10", layer.InFeatures())
	}
	if layer.OutFeatures() != 5 {
		t.Errorf("OutFeatures() = %d, want 5", layer.OutFeatures())
	}

	// Weight shape: [out_features, in_features]
	if !layer.Weight().Tensor().Shape().Equal(tensor.Shape{5, 10}) {
		t.Errorf("Weight shape = %v, want [5 10]", layer.Weight().Tensor().Shape())
	}
	if !layer.Bias().Tensor().Shape().Equal(tensor.Shape{5}) {
		t.Errorf("Bias shape = %v, want [5]", layer.Bias().Tensor().Shape())
	}

	for i, v := range layer.Bias().Tensor().Raw().AsFloat32() {
		if v != 0 {
			t.Errorf("Bias[%d] = %f, want 0", i, v)
		}
	}

	if len(layer.Parameters()) != 2 {
		t.Errorf("Parameters() length = %d, want 2", len(layer.Parameters()))
	}
}

// TestLinear_Forward tests Linear layer forward pass.
func TestLinear_Forward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	layer := nn.NewLinear(2, 2, backend)

	// Weight: [[1, 2], [3, 4]] (out=2, in=2), bias: [0.5, 1.0]
	copy(layer.Weight().Tensor().Raw().AsFloat32(), []float32{1, 2, 3, 4})
	copy(layer.Bias().Tensor().Raw().AsFloat32(), []float32{0.5, 1.0})

	input, _ := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2}, backend)
	output := layer.Forward(input)

	// y = x @ W.T + b = [1*1+1*2, 1*3+1*4] + [0.5, 1.0] = [3.5, 8.0]
	expected := []float32{3.5, 8.0}
	actual := output.Raw().AsFloat32()
	for i, exp := range expected {
		if !floatEqual(actual[i], exp, 1e-5) {
			t.Errorf("Output[%d] = %f, want %f", i, actual[i], exp)
		}
	}

	if !output.Shape().Equal(tensor.Shape{1, 2}) {
		t.Errorf("Output shape = %v, want [1 2]", output.Shape())
	}
}

// TestLinear_ForwardBatch tests Linear with batch input.
func TestLinear_ForwardBatch(t *testing.T) {
	backend := autodiff.New(cpu.New())

	layer := nn.NewLinear(3, 2, backend)
	input := tensor.Randn[float32](tensor.Shape{4, 3}, backend)

	output := layer.Forward(input)

	if !output.Shape().Equal(tensor.Shape{4, 2}) {
		t.Errorf("Output shape = %v, want [4 2]", output.Shape())
	}
}

// TestSequential tests the named-children container.
func TestSequential(t *testing.T) {
	backend := autodiff.New(cpu.New())

	linear := nn.NewLinear(3, 2, backend)
	relu := nn.NewReLU[testBackend]()

	model := nn.NewSequential[testBackend]().
		Add("fc", linear).
		Add("act", relu)

	if model.Len() != 2 {
		t.Errorf("Len() = %d, want 2", model.Len())
	}

	// Lookup by name
	child, ok := model.Child("fc")
	if !ok || child != nn.Module[testBackend](linear) {
		t.Error("Child(fc) should return the linear layer")
	}
	if _, ok := model.Child("missing"); ok {
		t.Error("Child(missing) should report absence")
	}

	// Children in registration order
	children := model.Children()
	if len(children) != 2 || children[0].Name != "fc" || children[1].Name != "act" {
		t.Errorf("Children() = %v, want [fc act]", []string{children[0].Name, children[1].Name})
	}

	input := tensor.Randn[float32](tensor.Shape{4, 3}, backend)
	output := model.Forward(input)
	if !output.Shape().Equal(tensor.Shape{4, 2}) {
		t.Errorf("Forward output shape = %v, want [4 2]", output.Shape())
	}

	if len(model.Parameters()) != 2 {
		t.Errorf("Parameters() length = %d, want 2", len(model.Parameters()))
	}
}

// TestSequential_AutoNames tests index naming for anonymous children.
func TestSequential_AutoNames(t *testing.T) {
	backend := autodiff.New(cpu.New())

	model := nn.NewSequential[testBackend]().
		Add("", nn.NewLinear(10, 5, backend)).
		Add("", nn.NewReLU[testBackend]()).
		Add("", nn.NewLinear(5, 2, backend))

	children := model.Children()
	want := []string{"0", "1", "2"}
	for i, name := range want {
		if children[i].Name != name {
			t.Errorf("child %d name = %q, want %q", i, children[i].Name, name)
		}
	}
}

// TestSequential_DuplicateName tests the duplicate-name panic.
func TestSequential_DuplicateName(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for duplicate child name")
		}
	}()

	backend := autodiff.New(cpu.New())
	nn.NewSequential[testBackend]().
		Add("fc", nn.NewLinear(3, 3, backend)).
		Add("fc", nn.NewLinear(3, 3, backend))
}

// TestSequential_StateDict tests name-prefixed state collection.
func TestSequential_StateDict(t *testing.T) {
	backend := autodiff.New(cpu.New())

	model := nn.NewSequential[testBackend]().
		Add("fc1", nn.NewLinear(4, 3, backend)).
		Add("act", nn.NewReLU[testBackend]()).
		Add("fc2", nn.NewLinear(3, 2, backend))

	stateDict := model.StateDict()

	wantKeys := []string{"fc1.weight", "fc1.bias", "fc2.weight", "fc2.bias"}
	if len(stateDict) != len(wantKeys) {
		t.Fatalf("StateDict has %d entries, want %d", len(stateDict), len(wantKeys))
	}
	for _, key := range wantKeys {
		if _, ok := stateDict[key]; !ok {
			t.Errorf("StateDict missing key %q", key)
		}
	}

	// Round-trip into a second model with the same architecture.
	clone := nn.NewSequential[testBackend]().
		Add("fc1", nn.NewLinear(4, 3, backend)).
		Add("act", nn.NewReLU[testBackend]()).
		Add("fc2", nn.NewLinear(3, 2, backend))

	if err := clone.LoadStateDict(stateDict); err != nil {
		t.Fatalf("LoadStateDict failed: %v", err)
	}

	original := model.StateDict()["fc1.weight"].AsFloat32()
	loaded := clone.StateDict()["fc1.weight"].AsFloat32()
	for i := range original {
		if original[i] != loaded[i] {
			t.Fatalf("weight mismatch after round trip at %d", i)
		}
	}
}

// TestFlatten tests the conv-to-linear bridge.
func TestFlatten(t *testing.T) {
	backend := autodiff.New(cpu.New())

	flatten := nn.NewFlatten[testBackend]()
	input := tensor.Randn[float32](tensor.Shape{2, 3, 4, 4}, backend)

	output := flatten.Forward(input)

	if !output.Shape().Equal(tensor.Shape{2, 48}) {
		t.Errorf("Flatten output shape = %v, want [2 48]", output.Shape())
	}
	if len(flatten.Parameters()) != 0 {
		t.Error("Flatten should have no parameters")
	}
}

// TestActivations tests the activation modules through the autodiff backend.
func TestActivations(t *testing.T) {
	backend := autodiff.New(cpu.New())

	t.Run("ReLU", func(t *testing.T) {
		relu := nn.NewReLU[testBackend]()
		input, _ := tensor.FromSlice([]float32{-2, -1, 0, 1, 2}, tensor.Shape{5}, backend)

		output := relu.Forward(input)

		expected := []float32{0, 0, 0, 1, 2}
		for i, exp := range expected {
			if output.Raw().AsFloat32()[i] != exp {
				t.Errorf("ReLU output[%d] = %f, want %f", i, output.Raw().AsFloat32()[i], exp)
			}
		}
		if len(relu.Parameters()) != 0 {
			t.Error("ReLU should have no parameters")
		}
	})

	t.Run("Sigmoid", func(t *testing.T) {
		sigmoid := nn.NewSigmoid[testBackend]()
		input, _ := tensor.FromSlice([]float32{0, 1, -1}, tensor.Shape{3}, backend)

		output := sigmoid.Forward(input)

		expected := []float32{
			0.5,
			float32(1.0 / (1.0 + math.Exp(-1.0))),
			float32(1.0 / (1.0 + math.Exp(1.0))),
		}
		for i, exp := range expected {
			if !floatEqual(output.Raw().AsFloat32()[i], exp, 1e-5) {
				t.Errorf("Sigmoid output[%d] = %f, want %f", i, output.Raw().AsFloat32()[i], exp)
			}
		}
	})

	t.Run("Tanh", func(t *testing.T) {
		tanh := nn.NewTanh[testBackend]()
		input, _ := tensor.FromSlice([]float32{0, 1, -1}, tensor.Shape{3}, backend)

		output := tanh.Forward(input)

		expected := []float32{
			0,
			float32(math.Tanh(1.0)),
			float32(math.Tanh(-1.0)),
		}
		for i, exp := range expected {
			if !floatEqual(output.Raw().AsFloat32()[i], exp, 1e-5) {
				t.Errorf("Tanh output[%d] = %f, want %f", i, output.Raw().AsFloat32()[i], exp)
			}
		}
	})
}

// TestInitialization tests Xavier initialization bounds.
func TestInitialization(t *testing.T) {
	backend := autodiff.New(cpu.New())

	w := nn.Xavier(100, 50, tensor.Shape{50, 100}, backend)

	// Expected bound: sqrt(6 / 150) ≈ 0.2
	expectedBound := math.Sqrt(6.0 / 150.0)
	for i, val := range w.Raw().AsFloat32() {
		if math.Abs(float64(val)) > expectedBound {
			t.Errorf("Xavier init value[%d] = %f exceeds bound %f", i, val, expectedBound)
		}
	}
}
