package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// where out dimensions follow (H + 2*padding - K_h)/stride + 1.
//
// Im2col lowers the convolution to a matrix product: input patches are
// unrolled into rows of a column buffer, the kernel is viewed as a
// [C_out, C_in*K_h*K_w] matrix, and the product gives all output positions
// at once. Patch extraction and the product are both parallelized since
// every row of the column buffer and every output channel is independent.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[0]
	CInK := kernelShape[1]
	KH := kernelShape[2]
	KW := kernelShape[3]

	if CIn != CInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, CInK))
	}

	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1

	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut))
	}

	output := newResult(tensor.Shape{N, COut, HOut, WOut}, input.DType(), cpu.device, "conv2d")

	switch input.DType() {
	case tensor.Float32:
		conv2dFloat32(output, input, kernel, N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding, cpu.par)
	case tensor.Float64:
		conv2dFloat64(output, input, kernel, N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding, cpu.par)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}

	return output
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func conv2dFloat32(output, input, kernel *tensor.RawTensor,
	N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding int, par parallel.Config,
) {
	inputData := input.AsFloat32()
	kernelData := kernel.AsFloat32()
	outputData := output.AsFloat32()

	// Unroll input patches: colBuf is [N*H_out*W_out, C_in*K_h*K_w],
	// one row per output position.
	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float32, colHeight*colWidth)

	parallel.For(colHeight, func(colIdx int) {
		n := colIdx / (HOut * WOut)
		rem := colIdx % (HOut * WOut)
		outH := rem / WOut
		outW := rem % WOut

		hStart := outH*stride - padding
		wStart := outW*stride - padding
		row := colBuf[colIdx*colWidth : (colIdx+1)*colWidth]

		bufIdx := 0
		for c := 0; c < CIn; c++ {
			plane := inputData[(n*CIn+c)*H*W : (n*CIn+c+1)*H*W]
			for kh := 0; kh < KH; kh++ {
				h := hStart + kh
				for kw := 0; kw < KW; kw++ {
					w := wStart + kw
					if h >= 0 && h < H && w >= 0 && w < W {
						row[bufIdx] = plane[h*W+w]
					} else {
						row[bufIdx] = 0
					}
					bufIdx++
				}
			}
		}
	}, par)

	// Kernel is already laid out as [C_out, C_in*K_h*K_w] in row-major order,
	// so the product is a dot of kernel rows with colBuf rows. Output is
	// written directly in [N, C_out, H_out, W_out] order.
	parallel.For(COut, func(co int) {
		kernelRow := kernelData[co*colWidth : (co+1)*colWidth]
		for j := 0; j < colHeight; j++ {
			patch := colBuf[j*colWidth : (j+1)*colWidth]
			var sum float32
			for k := range patch {
				sum += kernelRow[k] * patch[k]
			}
			n := j / (HOut * WOut)
			pos := j % (HOut * WOut)
			outputData[(n*COut+co)*HOut*WOut+pos] = sum
		}
	}, par)
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func conv2dFloat64(output, input, kernel *tensor.RawTensor,
	N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding int, par parallel.Config,
) {
	inputData := input.AsFloat64()
	kernelData := kernel.AsFloat64()
	outputData := output.AsFloat64()

	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float64, colHeight*colWidth)

	parallel.For(colHeight, func(colIdx int) {
		n := colIdx / (HOut * WOut)
		rem := colIdx % (HOut * WOut)
		outH := rem / WOut
		outW := rem % WOut

		hStart := outH*stride - padding
		wStart := outW*stride - padding
		row := colBuf[colIdx*colWidth : (colIdx+1)*colWidth]

		bufIdx := 0
		for c := 0; c < CIn; c++ {
			plane := inputData[(n*CIn+c)*H*W : (n*CIn+c+1)*H*W]
			for kh := 0; kh < KH; kh++ {
				h := hStart + kh
				for kw := 0; kw < KW; kw++ {
					w := wStart + kw
					if h >= 0 && h < H && w >= 0 && w < W {
						row[bufIdx] = plane[h*W+w]
					} else {
						row[bufIdx] = 0
					}
					bufIdx++
				}
			}
		}
	}, par)

	parallel.For(COut, func(co int) {
		kernelRow := kernelData[co*colWidth : (co+1)*colWidth]
		for j := 0; j < colHeight; j++ {
			patch := colBuf[j*colWidth : (j+1)*colWidth]
			var sum float64
			for k := range patch {
				sum += kernelRow[k] * patch[k]
			}
			n := j / (HOut * WOut)
			pos := j % (HOut * WOut)
			outputData[(n*COut+co)*HOut*WOut+pos] = sum
		}
	}, par)
}
