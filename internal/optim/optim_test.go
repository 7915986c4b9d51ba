package optim_test

import (
	"math"
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/optim"
	"github.com/born-ml/lumen/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// Helper to check float equality with tolerance.
func floatEqual(a, b, eps float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

// constantStep builds a StepFunc that reports a fixed gradient for one
// parameter, sidestepping the tape for unit-level update checks.
func constantStep(param *nn.Parameter[testBackend], gradValue, loss float32, backend testBackend) optim.StepFunc {
	return func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
		grad, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, backend.Device())
		if err != nil {
			panic(err)
		}
		for i := range grad.AsFloat32() {
			grad.AsFloat32()[i] = gradValue
		}
		return loss, map[*tensor.RawTensor]*tensor.RawTensor{
			param.Tensor().Raw(): grad,
		}
	}
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{2.0}, tensor.Shape{1}, backend)
	param := nn.NewParameter("x", x)

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param},
		optim.SGDConfig{LR: 0.1}, backend)

	loss := optimizer.Step(constantStep(param, 1.0, 0.25, backend))

	if loss != 0.25 {
		t.Errorf("Step returned loss %f, want the step function's 0.25", loss)
	}

	// x_new = 2.0 - 0.1 * 1.0 = 1.9
	actual := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(actual, 1.9, 1e-6) {
		t.Errorf("SGD update: got %f, want 1.9", actual)
	}
}

// TestSGD_WithMomentum tests velocity accumulation over two steps.
func TestSGD_WithMomentum(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1}, backend)
	param := nn.NewParameter("x", x)

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param},
		optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)

	// Step 1: v = 1.0, x = 1.0 - 0.1 = 0.9
	optimizer.Step(constantStep(param, 1.0, 0, backend))
	if actual := param.Tensor().Raw().AsFloat32()[0]; !floatEqual(actual, 0.9, 1e-6) {
		t.Errorf("momentum step 1: got %f, want 0.9", actual)
	}

	// Step 2: v = 0.9*1.0 + 1.0 = 1.9, x = 0.9 - 0.19 = 0.71
	optimizer.Step(constantStep(param, 1.0, 0, backend))
	if actual := param.Tensor().Raw().AsFloat32()[0]; !floatEqual(actual, 0.71, 1e-5) {
		t.Errorf("momentum step 2: got %f, want 0.71", actual)
	}
}

// TestSGD_SkipsMissingGradients tests that unused parameters stay put.
func TestSGD_SkipsMissingGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{3.0}, tensor.Shape{1}, backend)
	param := nn.NewParameter("x", x)

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param},
		optim.SGDConfig{LR: 0.5}, backend)

	optimizer.Step(func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
		return 0, map[*tensor.RawTensor]*tensor.RawTensor{}
	})

	if actual := param.Tensor().Raw().AsFloat32()[0]; actual != 3.0 {
		t.Errorf("parameter moved without a gradient: %f", actual)
	}
}

// TestAdam_FirstStep tests the bias-corrected first update.
func TestAdam_FirstStep(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1}, backend)
	param := nn.NewParameter("x", x)

	optimizer := optim.NewAdam([]*nn.Parameter[testBackend]{param},
		optim.AdamConfig{LR: 0.1}, backend)

	optimizer.Step(constantStep(param, 0.5, 0, backend))

	// After bias correction the first step moves by ~lr regardless of the
	// gradient's magnitude: m_hat = g, v_hat = g², update = lr*g/(|g|+eps).
	expected := float32(1.0 - 0.1*0.5/(math.Sqrt(0.25)+1e-8))
	actual := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(actual, expected, 1e-5) {
		t.Errorf("Adam step 1: got %f, want %f", actual, expected)
	}

	if optimizer.Timestep() != 1 {
		t.Errorf("Timestep() = %d, want 1", optimizer.Timestep())
	}
}

// TestAdam_Defaults tests the zero-value config defaults.
func TestAdam_Defaults(t *testing.T) {
	backend := autodiff.New(cpu.New())

	optimizer := optim.NewAdam(nil, optim.AdamConfig{}, backend)
	if !floatEqual(optimizer.LR(), 0.001, 1e-9) {
		t.Errorf("default LR = %f, want 0.001", optimizer.LR())
	}

	optimizer.SetLR(0.05)
	if !floatEqual(optimizer.LR(), 0.05, 1e-9) {
		t.Errorf("SetLR: LR = %f, want 0.05", optimizer.LR())
	}
}

// TestAdam_ConvergesOnQuadratic tests minimizing f(x) = (x-3)² through
// the tape.
func TestAdam_ConvergesOnQuadratic(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{0.0}, tensor.Shape{1}, backend)
	param := nn.NewParameter("x", x)

	optimizer := optim.NewAdam([]*nn.Parameter[testBackend]{param},
		optim.AdamConfig{LR: 0.1}, backend)

	var loss float32
	for step := 0; step < 200; step++ {
		loss = optimizer.Step(func() (float32, map[*tensor.RawTensor]*tensor.RawTensor) {
			tape.Clear()

			// f(x) = (x - 3)²
			diff := backend.AddScalar(param.Tensor().Raw(), float32(-3.0))
			squared := backend.Mul(diff, diff)
			result := tensor.New[float32](squared, backend)

			grads := autodiff.Backward(result, backend)
			return result.Raw().AsFloat32()[0], grads
		})
	}

	final := param.Tensor().Raw().AsFloat32()[0]
	if math.Abs(float64(final-3.0)) > 0.05 {
		t.Errorf("Adam did not converge: x = %f, want ~3.0 (final loss %f)", final, loss)
	}
}

// TestOptimizer_InterfaceCompliance pins both implementations to the
// step-function contract.
func TestOptimizer_InterfaceCompliance(t *testing.T) {
	backend := autodiff.New(cpu.New())

	var _ optim.Optimizer = optim.NewSGD[testBackend](nil, optim.SGDConfig{}, backend)
	var _ optim.Optimizer = optim.NewAdam[testBackend](nil, optim.AdamConfig{}, backend)
}

// TestZeroGrad tests gradient slot clearing.
func TestZeroGrad(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1}, backend)
	param := nn.NewParameter("x", x)

	grad, _ := tensor.FromSlice([]float32{0.5}, tensor.Shape{1}, backend)
	param.SetGrad(grad)

	optimizer := optim.NewSGD([]*nn.Parameter[testBackend]{param},
		optim.SGDConfig{}, backend)
	optimizer.ZeroGrad()

	if param.Grad() != nil {
		t.Error("ZeroGrad should clear parameter gradients")
	}
}
