// Package transform provides differentiable image transformations for
// the render loop.
//
// A Transform maps an image batch [N,C,H,W] to a transformed batch.
// Every transform is built from backend operations, so applying one
// inside a recording step keeps the image connected to the gradient
// tape: robustness transformations (jitter, scaling, padding) regularize
// the optimization without blocking gradients.
//
// Transforms that draw randomness take an explicit *rand.Rand so a
// render run can be made deterministic by seeding the source.
package transform

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/lumen/internal/tensor"
)

// Transform maps an image batch to a transformed image batch.
type Transform[B tensor.Backend] func(*tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

// Compose chains transforms left to right into a single Transform.
func Compose[B tensor.Backend](transforms ...Transform[B]) Transform[B] {
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		for _, tf := range transforms {
			t = tf(t)
		}
		return t
	}
}

// Pad surrounds the image with w pixels on every side using the given
// padding mode.
func Pad[B tensor.Backend](w int, mode tensor.PadMode) Transform[B] {
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return t.Pad2D(w, w, w, w, mode)
	}
}

// PadValue surrounds the image with w pixels of the given constant
// value. The backend's constant padding fills zeros, so the image is
// shifted by -value first and shifted back after.
func PadValue[B tensor.Backend](w int, value float32) Transform[B] {
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return t.AddScalar(-value).Pad2D(w, w, w, w, tensor.PadConstant).AddScalar(value)
	}
}

// Jitter crops a (H-d) x (W-d) window at a uniformly random offset in
// [0, d). Repeated small crops decorrelate the optimization from exact
// pixel positions.
func Jitter[B tensor.Backend](d int, rng *rand.Rand) Transform[B] {
	if d < 1 {
		panic(fmt.Sprintf("jitter: displacement must be at least 1, got %d", d))
	}
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		shape := t.Shape()
		if len(shape) != 4 {
			panic(fmt.Sprintf("jitter: expected 4D image batch, got shape %v", shape))
		}
		h, w := shape[2], shape[3]
		if h <= d || w <= d {
			panic(fmt.Sprintf("jitter: displacement %d too large for %dx%d image", d, h, w))
		}
		dy := rng.Intn(d)
		dx := rng.Intn(d)
		return t.Narrow(2, dy, h-d).Narrow(3, dx, w-d)
	}
}

// RandomScale resizes the image by a factor drawn uniformly from scales
// using bilinear interpolation.
func RandomScale[B tensor.Backend](scales []float32, rng *rand.Rand) Transform[B] {
	if len(scales) == 0 {
		panic("random scale: need at least one scale factor")
	}
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		shape := t.Shape()
		if len(shape) != 4 {
			panic(fmt.Sprintf("random scale: expected 4D image batch, got shape %v", shape))
		}
		s := float64(scales[rng.Intn(len(scales))])
		outH := scaledSize(shape[2], s)
		outW := scaledSize(shape[3], s)
		return t.Upsample2D(outH, outW)
	}
}

func scaledSize(size int, scale float64) int {
	out := int(math.Round(float64(size) * scale))
	if out < 1 {
		out = 1
	}
	return out
}

// Resize scales the image to exactly h x w with bilinear interpolation.
func Resize[B tensor.Backend](h, w int) Transform[B] {
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return t.Upsample2D(h, w)
	}
}

// ImageNet channel statistics used by torchvision-style models.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Normalize shifts and scales each channel: (x - mean[c]) / std[c].
func Normalize[B tensor.Backend](mean, std [3]float32) Transform[B] {
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		if len(t.Shape()) != 4 || t.Shape()[1] != 3 {
			panic(fmt.Sprintf("normalize: expected [N,3,H,W] image batch, got shape %v", t.Shape()))
		}
		backend := t.Backend()
		meanT := channelConstant(mean, backend)
		stdT := channelConstant(std, backend)
		return t.Sub(meanT).Div(stdT)
	}
}

// channelConstant builds a [1,3,1,1] tensor broadcasting one value per
// channel.
func channelConstant[B tensor.Backend](values [3]float32, backend B) *tensor.Tensor[float32, B] {
	raw, err := tensor.NewRaw(tensor.Shape{1, 3, 1, 1}, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}
	copy(raw.AsFloat32(), values[:])
	return tensor.New[float32](raw, backend)
}

// Standard returns the default robustness transforms: gray padding,
// coarse jitter, a small random rescale, and fine jitter. Rotation is
// not included; the op set covers axis-aligned transforms only.
func Standard[B tensor.Backend](rng *rand.Rand) []Transform[B] {
	scales := make([]float32, 11)
	for i := range scales {
		scales[i] = 1 + float32(i-5)/50.0
	}
	return []Transform[B]{
		PadValue[B](12, 0.5),
		Jitter[B](8, rng),
		RandomScale[B](scales, rng),
		Jitter[B](4, rng),
	}
}
