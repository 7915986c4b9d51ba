package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// Pad2D pads the spatial dimensions of NCHW input.
//
// PadConstant fills the border with zeros. PadReflect mirrors interior
// pixels across the edge without repeating the edge row itself, which
// requires each padding amount to be smaller than the padded dimension.
func (cpu *CPUBackend) Pad2D(x *tensor.RawTensor, top, bottom, left, right int, mode tensor.PadMode) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("pad2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if top < 0 || bottom < 0 || left < 0 || right < 0 {
		panic(fmt.Sprintf("pad2d: negative padding (%d,%d,%d,%d)", top, bottom, left, right))
	}

	N := shape[0]
	C := shape[1]
	H := shape[2]
	W := shape[3]

	if mode == tensor.PadReflect {
		if top >= H || bottom >= H || left >= W || right >= W {
			panic(fmt.Sprintf("pad2d: reflect padding (%d,%d,%d,%d) must be smaller than input %dx%d",
				top, bottom, left, right, H, W))
		}
	}

	HOut := H + top + bottom
	WOut := W + left + right
	result := newResult(tensor.Shape{N, C, HOut, WOut}, x.DType(), cpu.Device(), "pad2d")

	switch x.DType() {
	case tensor.Float32:
		pad2dFloat32(result, x, N, C, H, W, HOut, WOut, top, left, mode, cpu.par)
	case tensor.Float64:
		pad2dFloat64(result, x, N, C, H, W, HOut, WOut, top, left, mode, cpu.par)
	default:
		panic(fmt.Sprintf("pad2d: unsupported dtype %v", x.DType()))
	}

	return result
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func pad2dFloat32(output, input *tensor.RawTensor, N, C, H, W, HOut, WOut, top, left int, mode tensor.PadMode, par parallel.Config) {
	inputData := input.AsFloat32()
	outputData := output.AsFloat32()

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		if mode == tensor.PadConstant {
			// Fresh buffers are zeroed, so only the interior needs copying.
			for h := 0; h < H; h++ {
				src := plane[h*W : (h+1)*W]
				dst := outPlane[(h+top)*WOut+left : (h+top)*WOut+left+W]
				copy(dst, src)
			}
			return
		}

		for oh := 0; oh < HOut; oh++ {
			ih := reflectIndex(oh-top, H)
			row := plane[ih*W : (ih+1)*W]
			outRow := outPlane[oh*WOut : (oh+1)*WOut]
			for ow := 0; ow < WOut; ow++ {
				outRow[ow] = row[reflectIndex(ow-left, W)]
			}
		}
	}, par)
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func pad2dFloat64(output, input *tensor.RawTensor, N, C, H, W, HOut, WOut, top, left int, mode tensor.PadMode, par parallel.Config) {
	inputData := input.AsFloat64()
	outputData := output.AsFloat64()

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*HOut*WOut : (n*C+c+1)*HOut*WOut]

		if mode == tensor.PadConstant {
			for h := 0; h < H; h++ {
				src := plane[h*W : (h+1)*W]
				dst := outPlane[(h+top)*WOut+left : (h+top)*WOut+left+W]
				copy(dst, src)
			}
			return
		}

		for oh := 0; oh < HOut; oh++ {
			ih := reflectIndex(oh-top, H)
			row := plane[ih*W : (ih+1)*W]
			outRow := outPlane[oh*WOut : (oh+1)*WOut]
			for ow := 0; ow < WOut; ow++ {
				outRow[ow] = row[reflectIndex(ow-left, W)]
			}
		}
	}, par)
}

// reflectIndex mirrors an out-of-range coordinate back into [0, n). A
// single bounce is enough because reflect padding is validated to be
// smaller than the dimension.
func reflectIndex(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}
