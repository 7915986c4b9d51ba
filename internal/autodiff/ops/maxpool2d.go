package ops

import "github.com/born-ml/lumen/internal/tensor"

// MaxPool2DOp records a max pooling operation.
//
// The constructor scans each pooling window once more to find the flat
// index of its maximum; the backward pass routes each output gradient to
// exactly that position and leaves the rest of the window at zero.
type MaxPool2DOp struct {
	input      *tensor.RawTensor
	output     *tensor.RawTensor
	maxIndices []int
	kernelSize int
	stride     int
}

// NewMaxPool2DOp creates a new MaxPool2DOp, capturing max positions for
// gradient routing.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride int) *MaxPool2DOp {
	return &MaxPool2DOp{
		input:      input,
		output:     output,
		maxIndices: computeMaxIndices(input, output, kernelSize, stride),
		kernelSize: kernelSize,
		stride:     stride,
	}
}

// computeMaxIndices finds, for every output position, the flat input index
// that held the window maximum.
func computeMaxIndices(input, output *tensor.RawTensor, kernelSize, stride int) []int {
	inputShape := input.Shape()
	outputShape := output.Shape()

	N := inputShape[0]
	C := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	HOut := outputShape[2]
	WOut := outputShape[3]

	maxIndices := make([]int, N*C*HOut*WOut)

	switch input.DType() {
	case tensor.Float32:
		findMaxPositions(maxIndices, input.AsFloat32(), N, C, H, W, HOut, WOut, kernelSize, stride)
	case tensor.Float64:
		findMaxPositions(maxIndices, input.AsFloat64(), N, C, H, W, HOut, WOut, kernelSize, stride)
	default:
		panic("maxpool2d: unsupported dtype")
	}

	return maxIndices
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func findMaxPositions[T float32 | float64](maxIndices []int, inputData []T, N, C, H, W, HOut, WOut, kernelSize, stride int) {
	outIdx := 0
	for n := 0; n < N; n++ {
		for c := 0; c < C; c++ {
			planeBase := (n*C + c) * H * W
			for outH := 0; outH < HOut; outH++ {
				hStart := outH * stride
				for outW := 0; outW < WOut; outW++ {
					wStart := outW * stride

					maxPos := planeBase + hStart*W + wStart
					maxVal := inputData[maxPos]
					for kh := 0; kh < kernelSize; kh++ {
						rowBase := planeBase + (hStart+kh)*W
						for kw := 0; kw < kernelSize; kw++ {
							idx := rowBase + wStart + kw
							if v := inputData[idx]; v > maxVal {
								maxVal = v
								maxPos = idx
							}
						}
					}

					maxIndices[outIdx] = maxPos
					outIdx++
				}
			}
		}
	}
}

// Backward scatters each output gradient to the saved max position.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad := backend.MaxPool2DBackward(op.input, outputGrad, op.maxIndices, op.kernelSize, op.stride)
	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns [input].
func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the pooled tensor.
func (op *MaxPool2DOp) Output() *tensor.RawTensor {
	return op.output
}
