package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// MaxPool2DBackward routes gradients to max positions.
//
// maxIndices holds, for each output position in row-major order, the flat
// input index that held the window maximum during the forward pass. Only
// that position receives gradient; the rest of the window gets zero.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int, _, _ int) *tensor.RawTensor {
	inputShape := input.Shape()
	gradShape := grad.Shape()

	expectedLen := gradShape.NumElements()
	if len(maxIndices) != expectedLen {
		panic(fmt.Sprintf("maxpool2dBackward: maxIndices length %d != expected %d", len(maxIndices), expectedLen))
	}

	inputGrad := newResult(inputShape, grad.DType(), cpu.device, "maxpool2dBackward")

	switch grad.DType() {
	case tensor.Float32:
		gradData := grad.AsFloat32()
		inputGradData := inputGrad.AsFloat32()
		for i := range inputGradData {
			inputGradData[i] = 0
		}
		for outIdx, maxPos := range maxIndices {
			inputGradData[maxPos] += gradData[outIdx]
		}
	case tensor.Float64:
		gradData := grad.AsFloat64()
		inputGradData := inputGrad.AsFloat64()
		for i := range inputGradData {
			inputGradData[i] = 0
		}
		for outIdx, maxPos := range maxIndices {
			inputGradData[maxPos] += gradData[outIdx]
		}
	default:
		panic("maxpool2dBackward: unsupported dtype")
	}

	return inputGrad
}
