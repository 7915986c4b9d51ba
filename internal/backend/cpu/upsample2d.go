package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// Upsample2D resizes NCHW input to outH x outW with bilinear interpolation
// in align-corners convention: the corner pixels of input and output
// coincide exactly.
func (cpu *CPUBackend) Upsample2D(x *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("upsample2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("upsample2d: invalid output size %dx%d", outH, outW))
	}

	N := shape[0]
	C := shape[1]
	H := shape[2]
	W := shape[3]

	result := newResult(tensor.Shape{N, C, outH, outW}, x.DType(), cpu.Device(), "upsample2d")

	// Source coordinates depend only on the axis, so the interpolation
	// weights are computed once and shared by every plane.
	h0, h1, hFrac := interpCoords(H, outH)
	w0, w1, wFrac := interpCoords(W, outW)

	switch x.DType() {
	case tensor.Float32:
		upsample2dFloat32(result, x, N, C, H, W, outH, outW, h0, h1, hFrac, w0, w1, wFrac, cpu.par)
	case tensor.Float64:
		upsample2dFloat64(result, x, N, C, H, W, outH, outW, h0, h1, hFrac, w0, w1, wFrac, cpu.par)
	default:
		panic(fmt.Sprintf("upsample2d: unsupported dtype %v", x.DType()))
	}

	return result
}

// interpCoords maps each output index to its two source indices and the
// interpolation fraction between them, align-corners style.
func interpCoords(in, out int) (lo, hi []int, frac []float64) {
	lo = make([]int, out)
	hi = make([]int, out)
	frac = make([]float64, out)

	if out == 1 {
		return lo, hi, frac
	}

	scale := float64(in-1) / float64(out-1)
	for i := 0; i < out; i++ {
		src := float64(i) * scale
		l := int(src)
		if l > in-2 {
			l = in - 2
		}
		if l < 0 {
			l = 0
		}
		lo[i] = l
		hi[i] = l + 1
		if in == 1 {
			hi[i] = 0
		}
		frac[i] = src - float64(l)
	}
	return lo, hi, frac
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func upsample2dFloat32(output, input *tensor.RawTensor, N, C, H, W, outH, outW int, h0, h1 []int, hFrac []float64, w0, w1 []int, wFrac []float64, par parallel.Config) {
	inputData := input.AsFloat32()
	outputData := output.AsFloat32()

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*outH*outW : (n*C+c+1)*outH*outW]

		for oh := 0; oh < outH; oh++ {
			rowLo := plane[h0[oh]*W : h0[oh]*W+W]
			rowHi := plane[h1[oh]*W : h1[oh]*W+W]
			fh := float32(hFrac[oh])
			outRow := outPlane[oh*outW : (oh+1)*outW]

			for ow := 0; ow < outW; ow++ {
				fw := float32(wFrac[ow])
				top := rowLo[w0[ow]]*(1-fw) + rowLo[w1[ow]]*fw
				bottom := rowHi[w0[ow]]*(1-fw) + rowHi[w1[ow]]*fw
				outRow[ow] = top*(1-fh) + bottom*fh
			}
		}
	}, par)
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func upsample2dFloat64(output, input *tensor.RawTensor, N, C, H, W, outH, outW int, h0, h1 []int, hFrac []float64, w0, w1 []int, wFrac []float64, par parallel.Config) {
	inputData := input.AsFloat64()
	outputData := output.AsFloat64()

	parallel.ForBatch(N, C, func(n, c int) {
		plane := inputData[(n*C+c)*H*W : (n*C+c+1)*H*W]
		outPlane := outputData[(n*C+c)*outH*outW : (n*C+c+1)*outH*outW]

		for oh := 0; oh < outH; oh++ {
			rowLo := plane[h0[oh]*W : h0[oh]*W+W]
			rowHi := plane[h1[oh]*W : h1[oh]*W+W]
			fh := hFrac[oh]
			outRow := outPlane[oh*outW : (oh+1)*outW]

			for ow := 0; ow < outW; ow++ {
				fw := wFrac[ow]
				top := rowLo[w0[ow]]*(1-fw) + rowLo[w1[ow]]*fw
				bottom := rowHi[w0[ow]]*(1-fw) + rowHi[w1[ow]]*fw
				outRow[ow] = top*(1-fh) + bottom*fh
			}
		}
	}, par)
}
