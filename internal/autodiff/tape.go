package autodiff

import (
	"github.com/born-ml/lumen/internal/autodiff/ops"
	"github.com/born-ml/lumen/internal/tensor"
)

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass with reverse-mode differentiation.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... forward pass ...
//	gradients := tape.Backward(outputGrad, backend)
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates an empty tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording reports whether operations are currently recorded.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record appends an operation if the tape is recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear drops all recorded operations. The recording flag is preserved, so
// an optimization loop can Clear between steps without re-arming the tape.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward walks the tape in reverse and accumulates gradients for every
// tensor reached by the chain rule.
//
// Recording is paused for the duration so the gradient computations are
// not themselves taped.
func (t *GradientTape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	lastOp := t.operations[len(t.operations)-1]
	grads[lastOp.Output()] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]

		outGrad, hasGrad := grads[op.Output()]
		if !hasGrad {
			// Nothing downstream consumed this op's output.
			continue
		}

		inputGrads := op.Backward(outGrad, backend)
		t.accumulate(op.Inputs(), inputGrads, grads, backend)
	}

	return grads
}

// accumulate merges input gradients into the map, summing when a tensor
// already has a gradient from another consumer.
func (t *GradientTape) accumulate(
	inputs []*tensor.RawTensor,
	inputGrads []*tensor.RawTensor,
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	backend tensor.Backend,
) {
	for i, input := range inputs {
		if i >= len(inputGrads) || inputGrads[i] == nil {
			continue
		}
		if existing, ok := grads[input]; ok {
			grads[input] = backend.Add(existing, inputGrads[i])
		} else {
			grads[input] = inputGrads[i]
		}
	}
}
