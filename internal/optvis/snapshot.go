package optvis

import (
	"fmt"
	"image"
	"image/color"

	"github.com/born-ml/lumen/internal/tensor"
)

// Snapshot is a rendered image batch captured at an optimization
// threshold. Pixels are stored channel-last ([batch][height][width][channel])
// with values clamped to [0,1], detached from the gradient tape.
type Snapshot struct {
	Pixels   []float32
	Batch    int
	Height   int
	Width    int
	Channels int

	// Step is the optimization step the snapshot was taken at.
	Step int
}

// newSnapshot converts a [N,C,H,W] image tensor into a channel-last
// snapshot, clamping values into [0,1].
func newSnapshot[B tensor.Backend](t *tensor.Tensor[float32, B], step int) Snapshot {
	shape := t.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("snapshot: expected 4D image batch, got shape %v", shape))
	}
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	src := t.Raw().AsFloat32()

	pixels := make([]float32, len(src))
	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					v := src[((b*c+ch)*h+y)*w+x]
					if v < 0 {
						v = 0
					} else if v > 1 {
						v = 1
					}
					pixels[((b*h+y)*w+x)*c+ch] = v
				}
			}
		}
	}
	return Snapshot{Pixels: pixels, Batch: n, Height: h, Width: w, Channels: c, Step: step}
}

// At returns the value of one channel of one pixel.
func (s *Snapshot) At(b, y, x, c int) float32 {
	return s.Pixels[((b*s.Height+y)*s.Width+x)*s.Channels+c]
}

// Image converts one batch entry into an 8-bit image.
func (s *Snapshot) Image(b int) *image.NRGBA {
	if b < 0 || b >= s.Batch {
		panic(fmt.Sprintf("snapshot: batch index %d out of range [0,%d)", b, s.Batch))
	}
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			var r, g, bl float32
			switch s.Channels {
			case 1:
				r = s.At(b, y, x, 0)
				g, bl = r, r
			default:
				r = s.At(b, y, x, 0)
				g = s.At(b, y, x, 1)
				bl = s.At(b, y, x, 2)
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: quantize(r),
				G: quantize(g),
				B: quantize(bl),
				A: 255,
			})
		}
	}
	return img
}

func quantize(v float32) uint8 {
	return uint8(v*255 + 0.5)
}
