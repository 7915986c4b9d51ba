// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The operation set is curated for convolutional networks and image-space
// optimization: element-wise arithmetic, convolution and pooling, activation
// support, slicing and spatial resampling, and the reductions objective
// functions are built from.
//
// Implementations:
//   - backend/cpu: pure Go reference backend
//   - autodiff: decorator recording operations onto a gradient tape
//
// Example:
//
//	import (
//	    "github.com/born-ml/lumen/tensor"
//	    "github.com/born-ml/lumen/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting).
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Sub(a, b *RawTensor) *RawTensor // Element-wise subtraction.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.
	Div(a, b *RawTensor) *RawTensor // Element-wise division.

	// Matrix operations (2D).
	MatMul(a, b *RawTensor) *RawTensor // Matrix multiplication.

	// Convolutional operations.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor                               // 2D convolution.
	Conv2DInputBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor      // Conv2D input gradient.
	Conv2DKernelBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor     // Conv2D kernel gradient.
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor                                 // 2D max pooling.
	MaxPool2DBackward(input, outputGrad *RawTensor, maxIndices []int, kernelSize, stride int) *RawTensor // MaxPool2D gradient.
	AvgPool2D(input *RawTensor, kernelSize, stride int) *RawTensor                                 // 2D average pooling.
	AvgPool2DBackward(input, outputGrad *RawTensor, kernelSize, stride int) *RawTensor             // AvgPool2D gradient.

	// Activation support. ReLU, Sigmoid and Tanh are not part of the base
	// interface; backends that support them (the autodiff decorator) expose
	// them as extra methods discovered via interface assertion.
	Softmax(x *RawTensor, dim int) *RawTensor // Softmax along dimension.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Transpose dimensions.

	// Slicing.
	Narrow(x *RawTensor, dim, start, length int) *RawTensor // Contiguous range [start, start+length) along dim.

	// Spatial operations on NCHW tensors.
	Pad2D(x *RawTensor, top, bottom, left, right int, mode PadMode) *RawTensor // Border padding.
	Upsample2D(x *RawTensor, outH, outW int) *RawTensor                        // Bilinear resize, align-corners.

	// Scalar operations (element-wise with scalar).
	MulScalar(x *RawTensor, scalar any) *RawTensor // Multiply by scalar.
	AddScalar(x *RawTensor, scalar any) *RawTensor // Add scalar.

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                            // Total sum, shape [1].
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along dimension.
	Mean(x *RawTensor) *RawTensor                           // Total mean, shape [1].
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along dimension.
	Argmax(x *RawTensor, dim int) *RawTensor                // Index of maximum along dimension.

	// Metadata.
	Name() string   // Backend name for diagnostics.
	Device() Device // Device the backend computes on.
}
