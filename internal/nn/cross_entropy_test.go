package nn_test

import (
	"math"
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// TestCrossEntropyLoss_Forward tests the loss value for known logits.
func TestCrossEntropyLoss_Forward(t *testing.T) {
	backend := autodiff.New(cpu.New())

	criterion := nn.NewCrossEntropyLoss(backend)

	// Logits [[2, 1]], target 0:
	// loss = -log(e² / (e² + e¹)) = log(1 + e⁻¹)
	logits, _ := tensor.FromSlice([]float32{2, 1}, tensor.Shape{1, 2}, backend)

	targetsRaw, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, backend.Device())
	targetsRaw.AsInt32()[0] = 0
	targets := tensor.New[int32](targetsRaw, backend)

	loss := criterion.Forward(logits, targets)

	expected := float32(math.Log(1 + math.Exp(-1)))
	actual := loss.Raw().AsFloat32()[0]
	if math.Abs(float64(actual-expected)) > 1e-5 {
		t.Errorf("loss = %f, want %f", actual, expected)
	}
	if !loss.Shape().Equal(tensor.Shape{1}) {
		t.Errorf("loss shape = %v, want [1]", loss.Shape())
	}
}

// TestCrossEntropyLoss_BatchMean tests averaging over the batch.
func TestCrossEntropyLoss_BatchMean(t *testing.T) {
	backend := autodiff.New(cpu.New())

	criterion := nn.NewCrossEntropyLoss(backend)

	// Two identical samples must give the same loss as one.
	single, _ := tensor.FromSlice([]float32{1, 3, 0}, tensor.Shape{1, 3}, backend)
	double, _ := tensor.FromSlice([]float32{1, 3, 0, 1, 3, 0}, tensor.Shape{2, 3}, backend)

	t1, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, backend.Device())
	t1.AsInt32()[0] = 1
	t2, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, backend.Device())
	copy(t2.AsInt32(), []int32{1, 1})

	lossSingle := criterion.Forward(single, tensor.New[int32](t1, backend)).Raw().AsFloat32()[0]
	lossDouble := criterion.Forward(double, tensor.New[int32](t2, backend)).Raw().AsFloat32()[0]

	if math.Abs(float64(lossSingle-lossDouble)) > 1e-6 {
		t.Errorf("batch mean: single %f vs double %f", lossSingle, lossDouble)
	}
}

// TestCrossEntropyLoss_NumericalStability tests large-logit inputs.
func TestCrossEntropyLoss_NumericalStability(t *testing.T) {
	backend := autodiff.New(cpu.New())

	criterion := nn.NewCrossEntropyLoss(backend)

	// Logits beyond the float32 exp range; the log-sum-exp path must not
	// overflow. A confident correct prediction drives the loss to ~0.
	logits, _ := tensor.FromSlice([]float32{500, 0, 0}, tensor.Shape{1, 3}, backend)

	targetsRaw, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, backend.Device())
	targetsRaw.AsInt32()[0] = 0
	targets := tensor.New[int32](targetsRaw, backend)

	loss := criterion.Forward(logits, targets).Raw().AsFloat32()[0]

	if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
		t.Fatalf("loss = %f, want finite", loss)
	}
	if loss > 1e-4 {
		t.Errorf("loss = %f, want ~0 for a confident correct prediction", loss)
	}
}

// TestCrossEntropyLoss_TrainingStep tests that the loss drives parameters.
func TestCrossEntropyLoss_TrainingStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	layer := nn.NewLinear(2, 2, backend)
	criterion := nn.NewCrossEntropyLoss(backend)

	input, _ := tensor.FromSlice([]float32{1, -1}, tensor.Shape{1, 2}, backend)
	targetsRaw, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, backend.Device())
	targetsRaw.AsInt32()[0] = 1
	targets := tensor.New[int32](targetsRaw, backend)

	logits := layer.Forward(input)
	loss := criterion.Forward(logits, targets)

	grads := autodiff.Backward(loss, backend)

	weightGrad := grads[layer.Weight().Tensor().Raw()]
	if weightGrad == nil {
		t.Fatal("no gradient for layer weight")
	}
	if !weightGrad.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("weight grad shape = %v, want [2 2]", weightGrad.Shape())
	}
}

// TestAccuracy tests the accuracy helper.
func TestAccuracy(t *testing.T) {
	backend := autodiff.New(cpu.New())

	// Predictions: argmax [1, 0, 2]; targets [1, 1, 2] -> 2/3 correct.
	logits, _ := tensor.FromSlice([]float32{
		0, 5, 1,
		4, 2, 0,
		0, 1, 3,
	}, tensor.Shape{3, 3}, backend)

	targetsRaw, _ := tensor.NewRaw(tensor.Shape{3}, tensor.Int32, backend.Device())
	copy(targetsRaw.AsInt32(), []int32{1, 1, 2})
	targets := tensor.New[int32](targetsRaw, backend)

	acc := nn.Accuracy(logits, targets)

	expected := float32(2.0 / 3.0)
	if math.Abs(float64(acc-expected)) > 1e-6 {
		t.Errorf("Accuracy = %f, want %f", acc, expected)
	}
}
