package ops

import (
	"math"

	"github.com/born-ml/lumen/internal/tensor"
)

// CrossEntropyOp records the fused softmax + negative log-likelihood loss.
//
// Forward:
//
//	loss = mean_b(-log_softmax(logits[b])[targets[b]])
//
// Backward:
//
//	∂loss/∂logits[b,i] = (softmax(logits[b])[i] - 1{i == targets[b]}) / batch
//
// The fusion is why the gradient is this simple; computing softmax and NLL
// separately would route a much messier expression through the tape.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Inputs returns [logits]. Targets are class indices and receive no
// gradient.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the logits gradient (softmax - one_hot) / batch.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	logitsShape := op.logits.Shape()
	batchSize := logitsShape[0]
	numClasses := logitsShape[1]

	grad, err := tensor.NewRaw(logitsShape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic("cross entropy backward: failed to create gradient tensor")
	}

	switch op.logits.DType() {
	case tensor.Float32:
		crossEntropyGrad(grad.AsFloat32(), op.logits.AsFloat32(), op.targets.AsInt32(),
			outputGrad.AsFloat32()[0], batchSize, numClasses)
	case tensor.Float64:
		crossEntropyGrad(grad.AsFloat64(), op.logits.AsFloat64(), op.targets.AsInt32(),
			outputGrad.AsFloat64()[0], batchSize, numClasses)
	default:
		panic("cross entropy backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

func crossEntropyGrad[T float32 | float64](grad, logits []T, targets []int32, gradScale T, batchSize, numClasses int) {
	for b := 0; b < batchSize; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]
		probs := sampleSoftmax(row)

		target := int(targets[b])
		for i := 0; i < numClasses; i++ {
			g := probs[i]
			if i == target {
				g -= 1
			}
			grad[b*numClasses+i] = gradScale * g / T(batchSize)
		}
	}
}

// CrossEntropyForward computes mean negative log-likelihood over a batch.
//
// Logits must be [batch, classes] and targets [batch] class indices. The
// result has shape [1].
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	logitsShape := logits.Shape()
	if len(logitsShape) != 2 {
		panic("cross entropy: logits must be 2D [batch, classes]")
	}
	targetsShape := targets.Shape()
	if len(targetsShape) != 1 || targetsShape[0] != logitsShape[0] {
		panic("cross entropy: targets must be 1D matching the logits batch")
	}

	batchSize := logitsShape[0]
	numClasses := logitsShape[1]

	output, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), device)
	if err != nil {
		panic("cross entropy: failed to create loss tensor")
	}

	switch logits.DType() {
	case tensor.Float32:
		output.AsFloat32()[0] = nllLoss(logits.AsFloat32(), targets.AsInt32(), batchSize, numClasses)
	case tensor.Float64:
		output.AsFloat64()[0] = nllLoss(logits.AsFloat64(), targets.AsInt32(), batchSize, numClasses)
	default:
		panic("cross entropy: only float32 and float64 logits supported")
	}

	return output
}

func nllLoss[T float32 | float64](logits []T, targets []int32, batchSize, numClasses int) T {
	var total T
	for b := 0; b < batchSize; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]

		target := int(targets[b])
		if target < 0 || target >= numClasses {
			panic("cross entropy: target index out of bounds")
		}

		// log_softmax(z)[t] = z[t] - max(z) - log(Σ exp(z - max(z)))
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}

		logProb := float64(row[target]-maxVal) - math.Log(sumExp)
		total += T(-logProb)
	}
	return total / T(batchSize)
}

// sampleSoftmax computes softmax for one row with max-shifting.
func sampleSoftmax[T float32 | float64](row []T) []T {
	probs := make([]T, len(row))

	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum T
	for i, v := range row {
		e := T(math.Exp(float64(v - maxVal)))
		probs[i] = e
		sum += e
	}

	inv := 1 / sum
	for i := range probs {
		probs[i] *= inv
	}
	return probs
}
