package ops

import "github.com/born-ml/lumen/internal/tensor"

// Pad2DOp records spatial padding of NCHW input.
//
// Constant padding contributes nothing to the border, so its backward pass
// crops the interior region of the gradient. Reflect padding copies
// interior pixels to the border, so each border gradient folds back onto
// the interior pixel it mirrored.
type Pad2DOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	top    int
	left   int
	mode   tensor.PadMode
}

// NewPad2DOp creates a new Pad2DOp.
func NewPad2DOp(input, output *tensor.RawTensor, top, left int, mode tensor.PadMode) *Pad2DOp {
	return &Pad2DOp{
		input:  input,
		output: output,
		top:    top,
		left:   left,
		mode:   mode,
	}
}

// Backward folds the padded gradient back to the input shape.
func (op *Pad2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	inputShape := op.input.Shape()
	grad, err := tensor.NewRaw(inputShape, op.input.DType(), op.input.Device())
	if err != nil {
		panic("pad2d backward: failed to create gradient tensor")
	}

	gradShape := outputGrad.Shape()
	N := inputShape[0]
	C := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	switch op.input.DType() {
	case tensor.Float32:
		foldPadding(grad.AsFloat32(), outputGrad.AsFloat32(), N*C, H, W, HOut, WOut, op.top, op.left, op.mode)
	case tensor.Float64:
		foldPadding(grad.AsFloat64(), outputGrad.AsFloat64(), N*C, H, W, HOut, WOut, op.top, op.left, op.mode)
	default:
		panic("pad2d backward: unsupported dtype")
	}

	return []*tensor.RawTensor{grad}
}

//nolint:gocritic // Shape dimensions passed positionally, mirroring the NCHW layout.
func foldPadding[T float32 | float64](dst, grad []T, planes, H, W, HOut, WOut, top, left int, mode tensor.PadMode) {
	for p := 0; p < planes; p++ {
		plane := dst[p*H*W : (p+1)*H*W]
		gradPlane := grad[p*HOut*WOut : (p+1)*HOut*WOut]

		if mode == tensor.PadConstant {
			for h := 0; h < H; h++ {
				src := gradPlane[(h+top)*WOut+left : (h+top)*WOut+left+W]
				copy(plane[h*W:(h+1)*W], src)
			}
			continue
		}

		for oh := 0; oh < HOut; oh++ {
			ih := reflectBack(oh-top, H)
			row := plane[ih*W : (ih+1)*W]
			gradRow := gradPlane[oh*WOut : (oh+1)*WOut]
			for ow := 0; ow < WOut; ow++ {
				row[reflectBack(ow-left, W)] += gradRow[ow]
			}
		}
	}
}

// reflectBack mirrors an out-of-range coordinate into [0, n), matching the
// forward reflection.
func reflectBack(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}

// Inputs returns [x].
func (op *Pad2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the padded tensor.
func (op *Pad2DOp) Output() *tensor.RawTensor {
	return op.output
}
