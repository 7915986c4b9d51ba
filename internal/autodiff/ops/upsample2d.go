package ops

import "github.com/born-ml/lumen/internal/tensor"

// Upsample2DOp records a bilinear resize in align-corners convention.
//
// Interpolation is linear in the input pixels, so the backward pass is its
// exact adjoint: each output gradient is scattered to the four source
// corners with the same interpolation weights used forward.
type Upsample2DOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewUpsample2DOp creates a new Upsample2DOp.
func NewUpsample2DOp(input, output *tensor.RawTensor) *Upsample2DOp {
	return &Upsample2DOp{input: input, output: output}
}

// Backward scatters each gradient value to its interpolation sources.
func (op *Upsample2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	inputShape := op.input.Shape()
	grad, err := tensor.NewRaw(inputShape, op.input.DType(), op.input.Device())
	if err != nil {
		panic("upsample2d backward: failed to create gradient tensor")
	}

	gradShape := outputGrad.Shape()
	N := inputShape[0]
	C := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	h0, h1, hFrac := resizeGrid(H, HOut)
	w0, w1, wFrac := resizeGrid(W, WOut)

	switch op.input.DType() {
	case tensor.Float32:
		scatterBilinear(grad.AsFloat32(), outputGrad.AsFloat32(), N*C, H, W, HOut, WOut, h0, h1, hFrac, w0, w1, wFrac)
	case tensor.Float64:
		scatterBilinear(grad.AsFloat64(), outputGrad.AsFloat64(), N*C, H, W, HOut, WOut, h0, h1, hFrac, w0, w1, wFrac)
	default:
		panic("upsample2d backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

// resizeGrid maps output indices to source index pairs and fractions,
// matching the forward align-corners sampling.
func resizeGrid(in, out int) (lo, hi []int, frac []float64) {
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
func scatterBilinear[T float32 | float64](dst, grad []T, planes, H, W, HOut, WOut int, h0, h1 []int, hFrac []float64, w0, w1 []int, wFrac []float64) {
	for p := 0; p < planes; p++ {
		plane := dst[p*H*W : (p+1)*H*W]
		gradPlane := grad[p*HOut*WOut : (p+1)*HOut*WOut]

		for oh := 0; oh < HOut; oh++ {
			fh := T(hFrac[oh])
			rowLo := h0[oh] * W
			rowHi := h1[oh] * W

			for ow := 0; ow < WOut; ow++ {
				fw := T(wFrac[ow])
				g := gradPlane[oh*WOut+ow]

				plane[rowLo+w0[ow]] += g * (1 - fh) * (1 - fw)
				plane[rowLo+w1[ow]] += g * (1 - fh) * fw
				plane[rowHi+w0[ow]] += g * fh * (1 - fw)
				plane[rowHi+w1[ow]] += g * fh * fw
			}
		}
	}
}

// Inputs returns [x].
func (op *Upsample2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the resized tensor.
func (op *Upsample2DOp) Output() *tensor.RawTensor {
	return op.output
}
