package nn

import (
	"math"

	"github.com/born-ml/lumen/internal/tensor"
)

// CrossEntropyLoss computes cross-entropy loss for multi-class
// classification.
//
// The implementation uses the LogSoftmax + NLLLoss decomposition for
// numerical stability:
//
//	Loss = -log_probs[target]
//	where log_probs = LogSoftmax(logits)
//
// and the gradient with respect to the logits is
//
//	∂L/∂logits = Softmax(logits) - y_one_hot
//
// Usage:
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	logits := model.Forward(input)             // [batch_size, num_classes]
//	loss := criterion.Forward(logits, targets) // targets: [batch_size] class indices
//
// Expects raw logits (unnormalized scores); the log-sum-exp trick keeps
// the computation stable for large or very negative logits.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// crossEntropyBackend is implemented by gradient-recording backends.
type crossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// Forward computes the mean cross-entropy loss over the batch.
//
// Parameters:
//   - logits: unnormalized scores with shape [batch_size, num_classes]
//   - targets: class indices with shape [batch_size]
//
// Returns a scalar loss tensor. With a gradient-recording backend the
// fused operation lands on the tape; otherwise the loss is computed
// directly without gradient support.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	if adBackend, ok := any(c.backend).(crossEntropyBackend); ok {
		resultRaw := adBackend.CrossEntropy(logits.Raw(), targets.Raw())
		return tensor.New[float32](resultRaw, c.backend)
	}

	shape := logits.Shape()
	if len(shape) != 2 {
		panic("cross entropy: logits must be 2D [batch_size, num_classes]")
	}

	batchSize := shape[0]
	numClasses := shape[1]

	targetsData := targets.Raw().AsInt32()
	if len(targetsData) != batchSize {
		panic("cross entropy: targets must have shape [batch_size]")
	}

	logitsData := logits.Raw().AsFloat32()

	var totalLoss float32
	for b := 0; b < batchSize; b++ {
		sampleLogits := logitsData[b*numClasses : (b+1)*numClasses]
		logProbs := logSoftmax(sampleLogits)

		target := int(targetsData[b])
		if target < 0 || target >= numClasses {
			panic("cross entropy: target index out of bounds")
		}
		totalLoss += -logProbs[target]
	}

	lossRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, c.backend.Device())
	if err != nil {
		panic(err)
	}
	lossRaw.AsFloat32()[0] = totalLoss / float32(batchSize)

	return tensor.New[float32](lossRaw, c.backend)
}

// Parameters returns an empty slice; loss functions have no trainable
// parameters.
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// logSoftmax computes log(softmax(z)) with the log-sum-exp trick:
//
//	LogSoftmax(z)[i] = z[i] - (max(z) + log(Σ exp(z - max(z))))
//
// Subtracting max(z) before exponentiating prevents overflow for logits
// beyond the float32 exp range.
func logSoftmax(z []float32) []float32 {
	result := make([]float32, len(z))

	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	var sumExp float32
	for _, v := range z {
		sumExp += float32(math.Exp(float64(v - maxZ)))
	}

	logSumExp := maxZ + float32(math.Log(float64(sumExp)))
	for i, v := range z {
		result[i] = v - logSumExp
	}

	return result
}

// argmax returns the index of the maximum value in the slice.
func argmax(z []float32) int {
	maxIdx := 0
	maxVal := z[0]
	for i, v := range z[1:] {
		if v > maxVal {
			maxVal = v
			maxIdx = i + 1
		}
	}
	return maxIdx
}

// Accuracy computes classification accuracy for a batch.
//
// Parameters:
//   - logits: model predictions [batch_size, num_classes]
//   - targets: ground truth class indices [batch_size]
//
// Returns the fraction of correct predictions in [0, 1].
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	shape := logits.Shape()
	batchSize := shape[0]
	numClasses := shape[1]

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()

	correct := 0
	for b := 0; b < batchSize; b++ {
		sampleLogits := logitsData[b*numClasses : (b+1)*numClasses]
		if argmax(sampleLogits) == int(targetsData[b]) {
			correct++
		}
	}

	return float32(correct) / float32(batchSize)
}
