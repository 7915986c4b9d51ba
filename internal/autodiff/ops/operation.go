// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// Each operation captures its input and output tensors during the forward
// pass and knows how to turn an output gradient into input gradients during
// the backward pass:
//   - AddOp/SubOp: gradient flows through unchanged (negated for the
//     subtrahend), reduced along broadcast dimensions
//   - MulOp/DivOp: product and quotient rules
//   - MatMulOp: grad@Bᵀ and Aᵀ@grad
//   - Conv2DOp, MaxPool2DOp, AvgPool2DOp: delegate to the backend's
//     dedicated backward kernels
//   - ReLUOp/SigmoidOp/TanhOp: elementwise chain rule through the saved
//     activation
//   - Shape ops (Reshape, Transpose, Narrow, Pad2D, Upsample2D): route the
//     gradient back through the inverse index mapping
//   - Reductions (Sum, Mean, SumDim, MeanDim, Softmax, CrossEntropy):
//     broadcast or redistribute the gradient over the reduced elements
package ops

import "github.com/born-ml/lumen/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward computes gradients for the operation's inputs given the
	// gradient of its output. The returned slice is aligned with Inputs();
	// a nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors captured during the forward pass.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor produced by the forward pass.
	Output() *tensor.RawTensor
}
