package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// MaxPool2D performs 2D max pooling over NCHW input.
//
// Output spatial dimensions follow (H - kernelSize)/stride + 1. Channel
// planes are independent, so work is distributed per (batch, channel) pair.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}

	N := inputShape[0]
	C := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]

	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	if kernelSize > H || kernelSize > W {
		panic(fmt.Sprintf("maxpool2d: kernel size %d too large for input %dx%d", kernelSize, H, W))
	}

	HOut := (H-kernelSize)/stride + 1
	WOut := (W-kernelSize)/stride + 1

	output := newResult(tensor.Shape{N, C, HOut, WOut}, input.DType(), cpu.Device(), "maxpool2d")

	switch input.DType() {
	case tensor.Float32:
		maxpool2dFloat32(output, input, N, C, H, W, HOut, WOut, kernelSize, stride, cpu.par)
	case tensor.Float64:
		maxpool2dFloat64(output, input, N, C, H, W, HOut, WOut, kernelSize, stride, cpu.par)
	default:
		panic(fmt.Sprintf("maxpool2d: unsupported dtype %v", input.DType()))
	}

	return output
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func maxpool2dFloat32(output, input *tensor.RawTensor, N, C, H, W, HOut, WOut, kernelSize, stride int, par parallel.Config) {
	inputData := input.AsFloat32()
	outputData := output.AsFloat32()

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride

				maxVal := plane[hStart*W+wStart]
				for kh := 0; kh < kernelSize; kh++ {
					row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
					for kw := 0; kw < kernelSize; kw++ {
						if v := row[wStart+kw]; v > maxVal {
							maxVal = v
						}
					}
				}

				outPlane[outH*WOut+outW] = maxVal
			}
		}
	}, par)
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func maxpool2dFloat64(output, input *tensor.RawTensor, N, C, H, W, HOut, WOut, kernelSize, stride int, par parallel.Config) {
	inputData := input.AsFloat64()
	outputData := output.AsFloat64()

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH * stride
			for outW := 0; outW < WOut; outW++ {
				wStart := outW * stride

				maxVal := plane[hStart*W+wStart]
				for kh := 0; kh < kernelSize; kh++ {
					row := plane[(hStart+kh)*W : (hStart+kh)*W+W]
					for kw := 0; kw < kernelSize; kw++ {
						if v := row[wStart+kw]; v > maxVal {
							maxVal = v
						}
					}
				}

				outPlane[outH*WOut+outW] = maxVal
			}
		}
	}, par)
}
