package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// AvgPool2D performs 2D average pooling over NCHW input.
//
// Same window geometry as MaxPool2D; each output value is the mean of its
// kernelSize x kernelSize window. Classifier heads use a full-extent window
// for global average pooling.
func (cpu *CPUBackend) AvgPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("avgpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}

	N := inputShape[0]
	C := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]

	if kernelSize <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid stride %d", stride))
	}
	if kernelSize > H || kernelSize > W {
		panic(fmt.Sprintf("avgpool2d: kernel size %d too large for input %dx%d", kernelSize, H, W))
	}

	HOut := (H-kernelSize)/stride + 1
	WOut := (W-kernelSize)/stride + 1

	output := newResult(tensor.Shape{N, C, HOut, WOut}, input.DType(), cpu.Device(), "avgpool2d")

	switch input.DType() {
	case tensor.Float32:
		avgpool2dFloat32(output, input, N, C, H, W, HOut, WOut, kernelSize, stride, cpu.par)
	case tensor.Float64:
		avgpool2dFloat64(output, input, N, C, H, W, HOut, WOut, kernelSize, stride, cpu.par)
	default:
		panic(fmt.Sprintf("avgpool2d: unsupported dtype %v", input.DType()))
	}

	return output
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func avgpool2dFloat32(output, input *tensor.RawTensor, N, C, H, W, HOut, WOut, kernelSize, stride int, par parallel.Config) {
	inputData := input.AsFloat32()
	outputData := output.AsFloat32()
	invWindow := 1.0 / float32(kernelSize*kernelSize)

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride

				var sum float32
				for kh := 0; kh < kernelSize; kh++ {
					row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
					for kw := 0; kw < kernelSize; kw++ {
						sum += row[wStart+kw]
					}
				}

				outPlane[outH*WOut+outW] = sum * invWindow
			}
		}
	}, par)
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func avgpool2dFloat64(output, input *tensor.RawTensor, N, C, H, W, HOut, WOut, kernelSize, stride int, par parallel.Config) {
	inputData := input.AsFloat64()
	outputData := output.AsFloat64()
	invWindow := 1.0 / float64(kernelSize*kernelSize)

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride

				var sum float64
				for kh := 0; kh < kernelSize; kh++ {
					row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
					for kw := 0; kw < kernelSize; kw++ {
						sum += row[wStart+kw]
					}
				}

				outPlane[outH*WOut+outW] = sum * invWindow
			}
		}
	}, par)
}

// AvgPool2DBackward spreads each output gradient uniformly across its
// pooling window, scaled by 1/window size.
func (cpu *CPUBackend) AvgPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	inputShape := input.Shape()
	gradShape := grad.Shape()

	N := inputShape[0]
	C := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	inputGrad := newResult(inputShape, grad.DType(), cpu.device, "avgpool2dBackward")

	switch grad.DType() {
	case tensor.Float32:
		gradData := grad.AsFloat32()
		inputGradData := inputGrad.AsFloat32()
		invWindow := 1.0 / float32(kernelSize*kernelSize)

		parallel.ForBatch(N, C, func(n, c int) {
			plane := inputGradData[(n*C+c)*H*W : (n*C+c+1)*H*W]
			outPlane := gradData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

			for i := range plane {
				plane[i] = 0
			}

			for outH := 0; outH < HOut; outH++ {
				hStart := outH * stride
				for outW := 0; outW < WOut; outW++ {
					wStart := outW * stride
					share := outPlane[outH*WOut+outW] * invWindow

					for kh := 0; kh < kernelSize; kh++ {
						row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
						for kw := 0; kw < kernelSize; kw++ {
							row[wStart+kw] += share
						}
					}
				}
			}
		}, cpu.par)
	case tensor.Float64:
		gradData := grad.AsFloat64()
		inputGradData := inputGrad.AsFloat64()
		invWindow := 1.0 / float64(kernelSize*kernelSize)

		parallel.ForBatch(N, C, func(n, c int) {
			plane := inputGradData[(n*C+c)*H*W : (n*C+c+1)*H*W]
			outPlane := gradData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

			for i := range plane {
				plane[i] = 0
			}

			for outH := 0; outH < HOut; outH++ {
				hStart := outH * stride
				for outW := 0; outW < WOut; outW++ {
					wStart := outW * stride
					share := outPlane[outH*WOut+outW] * invWindow

					for kh := 0; kh < kernelSize; kh++ {
						row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
						for kw := 0; kw < kernelSize; kw++ {
							row[wStart+kw] += share
						}
					}
				}
			}
		}, cpu.par)
	default:
		panic("avgpool2dBackward: unsupported dtype")
	}

	return inputGrad
}
