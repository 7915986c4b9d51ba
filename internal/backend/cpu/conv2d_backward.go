package cpu

import (
	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// Conv2DInputBackward computes the gradient of Conv2D w.r.t. its input.
//
// Each output gradient value is scattered back through the kernel to the
// input positions that produced it (transposed convolution). Batches touch
// disjoint gradient planes, so the batch loop is parallelized.
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := grad.Shape()

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[0]
	KH := kernelShape[2]
	KW := kernelShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	inputGrad := newResult(tensor.Shape{N, CIn, H, W}, grad.DType(), cpu.device, "conv2dInputBackward")

	switch grad.DType() {
	case tensor.Float32:
		conv2dInputBackwardFloat32(inputGrad, grad, kernel,
			N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding, cpu.par)
	case tensor.Float64:
		conv2dInputBackwardFloat64(inputGrad, grad, kernel,
			N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding, cpu.par)
	default:
		panic("conv2dInputBackward: unsupported dtype")
	}

	return inputGrad
}

//nolint:gocritic,gocognit // Deep loop nest is inherent to convolution backprop.
func conv2dInputBackwardFloat32(inputGrad, grad, kernel *tensor.RawTensor,
	N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding int, par parallel.Config,
) {
	inputGradData := inputGrad.AsFloat32()
	gradData := grad.AsFloat32()
	kernelData := kernel.AsFloat32()

	// Each work item owns one batch sample's gradient plane.
	parallel.For(N, func(batch int) {
		gradPlane := inputGradData[batch*CIn*H*W : (batch+1)*CIn*H*W]
		outGrad := gradData[batch*COut*HOut*WOut : (batch+1)*COut*HOut*WOut]

		for i := range gradPlane {
			gradPlane[i] = 0
		}

		for outH := 0; outH < HOut; outH++ {
			for outW := 0; outW < WOut; outW++ {
				for co := 0; co < COut; co++ {
					gradVal := outGrad[co*HOut*WOut+outH*WOut+outW]
					kernelCOut := kernelData[co*CIn*KH*KW : (co+1)*CIn*KH*KW]

					for ci := 0; ci < CIn; ci++ {
						channelGrad := gradPlane[ci*H*W : (ci+1)*H*W]
						kernelPlane := kernelCOut[ci*KH*KW : (ci+1)*KH*KW]

						for kh := 0; kh < KH; kh++ {
							h := outH*stride - padding + kh
							if h < 0 || h >= H {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								w := outW*stride - padding + kw
								if w < 0 || w >= W {
									continue
								}
								channelGrad[h*W+w] += gradVal * kernelPlane[kh*KW+kw]
							}
						}
					}
				}
			}
		}
	}, par)
}

//nolint:gocritic,gocognit // Deep loop nest is inherent to convolution backprop.
func conv2dInputBackwardFloat64(inputGrad, grad, kernel *tensor.RawTensor,
	N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding int, par parallel.Config,
) {
	inputGradData := inputGrad.AsFloat64()
	gradData := grad.AsFloat64()
	kernelData := kernel.AsFloat64()

	parallel.For(N, func(batch int) {
		gradPlane := inputGradData[batch*CIn*H*W : (batch+1)*CIn*H*W]
		outGrad := gradData[batch*COut*HOut*WOut : (batch+1)*COut*HOut*WOut]

		for i := range gradPlane {
			gradPlane[i] = 0
		}

		for outH := 0; outH < HOut; outH++ {
			for outW := 0; outW < WOut; outW++ {
				for co := 0; co < COut; co++ {
					gradVal := outGrad[co*HOut*WOut+outH*WOut+outW]
					kernelCOut := kernelData[co*CIn*KH*KW : (co+1)*CIn*KH*KW]

					for ci := 0; ci < CIn; ci++ {
						channelGrad := gradPlane[ci*H*W : (ci+1)*H*W]
						kernelPlane := kernelCOut[ci*KH*KW : (ci+1)*KH*KW]

						for kh := 0; kh < KH; kh++ {
							h := outH*stride - padding + kh
							if h < 0 || h >= H {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								w := outW*stride - padding + kw
								if w < 0 || w >= W {
									continue
								}
								channelGrad[h*W+w] += gradVal * kernelPlane[kh*KW+kw]
							}
						}
					}
				}
			}
		}
	}, par)
}

// Conv2DKernelBackward computes the gradient of Conv2D w.r.t. its kernel.
//
// Each kernel weight accumulates input*grad products over all batch samples
// and output positions. Output channels own disjoint kernel gradient slices,
// so the channel loop is parallelized.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := grad.Shape()

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[0]
	KH := kernelShape[2]
	KW := kernelShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	kernelGrad := newResult(tensor.Shape{COut, CIn, KH, KW}, grad.DType(), cpu.device, "conv2dKernelBackward")

	switch grad.DType() {
	case tensor.Float32:
		conv2dKernelBackwardFloat32(kernelGrad, grad, input,
			N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding, cpu.par)
	case tensor.Float64:
		conv2dKernelBackwardFloat64(kernelGrad, grad, input,
			N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding, cpu.par)
	default:
		panic("conv2dKernelBackward: unsupported dtype")
	}

	return kernelGrad
}

//nolint:gocritic,gocognit // Deep loop nest is inherent to convolution backprop.
func conv2dKernelBackwardFloat32(kernelGrad, grad, input *tensor.RawTensor,
	N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding int, par parallel.Config,
) {
	kernelGradData := kernelGrad.AsFloat32()
	gradData := grad.AsFloat32()
	inputData := input.AsFloat32()

	parallel.For(COut, func(co int) {
		kernelPlane := kernelGradData[co*CIn*KH*KW : (co+1)*CIn*KH*KW]

		for ci := 0; ci < CIn; ci++ {
			for kh := 0; kh < KH; kh++ {
				for kw := 0; kw < KW; kw++ {
					var sum float32

					for n := 0; n < N; n++ {
						inputPlane := inputData[(n*CIn+ci)*H*W : (n*CIn+ci+1)*H*W]
						gradPlane := gradData[(n*COut+co)*HOut*WOut : (n*COut+co+1)*HOut*WOut]

						for outH := 0; outH < HOut; outH++ {
							h := outH*stride - padding + kh
							if h < 0 || h >= H {
								continue
							}
							for outW := 0; outW < WOut; outW++ {
								w := outW*stride - padding + kw
								if w < 0 || w >= W {
									continue
								}
								sum += inputPlane[h*W+w] * gradPlane[outH*WOut+outW]
							}
						}
					}

					kernelPlane[ci*KH*KW+kh*KW+kw] = sum
				}
			}
		}
	}, par)
}

//nolint:gocritic,gocognit // Deep loop nest is inherent to convolution backprop.
func conv2dKernelBackwardFloat64(kernelGrad, grad, input *tensor.RawTensor,
	N, CIn, H, W, COut, KH, KW, HOut, WOut, stride, padding int, par parallel.Config,
) {
	kernelGradData := kernelGrad.AsFloat64()
	gradData := grad.AsFloat64()
	inputData := input.AsFloat64()

	parallel.For(COut, func(co int) {
		kernelPlane := kernelGradData[co*CIn*KH*KW : (co+1)*CIn*KH*KW]

		for ci := 0; ci < CIn; ci++ {
			for kh := 0; kh < KH; kh++ {
				for kw := 0; kw < KW; kw++ {
					var sum float64

					for n := 0; n < N; n++ {
						inputPlane := inputData[(n*CIn+ci)*H*W : (n*CIn+ci+1)*H*W]
						gradPlane := gradData[(n*COut+co)*HOut*WOut : (n*COut+co+1)*HOut*WOut]

						for outH := 0; outH < HOut; outH++ {
							h := outH*stride - padding + kh
							if h < 0 || h >= H {
								continue
							}
							for outW := 0; outW < WOut; outW++ {
								w := outW*stride - padding + kw
								if w < 0 || w >= W {
									continue
								}
								sum += inputPlane[h*W+w] * gradPlane[outH*WOut+outW]
							}
						}
					}

					kernelPlane[ci*KH*KW+kh*KW+kw] = sum
				}
			}
		}
	}, par)
}
