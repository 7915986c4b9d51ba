// Package param provides image parameterizations for feature
// visualization.
//
// A parameterization separates the optimized buffer from the image the
// model sees: the render loop updates Params with gradient steps, and
// ImageFn maps the current buffer into an RGB batch in [0,1]. The
// default pixel parameterization squashes the buffer through a sigmoid
// and, unless disabled, decorrelates color channels first, which biases
// the optimization toward the color statistics of natural images.
package param

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// Parameterization bundles the optimized parameters with the function
// producing the image they encode.
type Parameterization[B tensor.Backend] struct {
	// Params are the tensors the render loop optimizes.
	Params []*nn.Parameter[B]

	// ImageFn produces the current [N,3,H,W] image with values in
	// [0,1]. It is called inside the recording step, so every
	// operation it performs lands on the gradient tape.
	ImageFn func() *tensor.Tensor[float32, B]

	Batch  int
	Height int
	Width  int
}

type options struct {
	batch       int
	height      int
	width       int
	sd          float32
	decorrelate bool
	seed        int64
	hasSeed     bool
}

// Option configures Image.
type Option func(*options)

// WithBatch renders n images at once.
func WithBatch(n int) Option {
	return func(o *options) { o.batch = n }
}

// WithSize overrides the square default with an explicit height and
// width.
func WithSize(h, w int) Option {
	return func(o *options) {
		o.height = h
		o.width = w
	}
}

// WithSD sets the standard deviation of the initial noise buffer.
func WithSD(sd float32) Option {
	return func(o *options) { o.sd = sd }
}

// WithDecorrelate toggles the color decorrelation stage. It is enabled
// by default.
func WithDecorrelate(enabled bool) Option {
	return func(o *options) { o.decorrelate = enabled }
}

// WithSeed makes the initial buffer deterministic.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.hasSeed = true
	}
}

// colorCorrelation approximates the empirical correlation between RGB
// channels of natural images (matrix square root of the channel
// covariance, scaled by its largest column norm). The decorrelation
// stage multiplies each pixel's channels by it.
var colorCorrelation = [3][3]float32{
	{0.562828, 0.194825, 0.043294},
	{0.584475, 0.000000, -0.108236},
	{0.584475, -0.194825, 0.064942},
}

// Image creates a pixel parameterization of a size x size RGB image.
//
// The buffer starts as low-amplitude Gaussian noise. ImageFn applies
// the color decorrelation as a fixed 1x1 convolution and squashes the
// result through a sigmoid, so the visible image always stays in [0,1]
// while the buffer itself remains unbounded.
func Image[B tensor.Backend](size int, backend B, opts ...Option) *Parameterization[B] {
	cfg := options{
		batch:       1,
		height:      size,
		width:       size,
		sd:          0.01,
		decorrelate: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batch < 1 {
		panic(fmt.Sprintf("param: batch must be at least 1, got %d", cfg.batch))
	}
	if cfg.height < 1 || cfg.width < 1 {
		panic(fmt.Sprintf("param: invalid image size %dx%d", cfg.height, cfg.width))
	}

	seed := cfg.seed
	if !cfg.hasSeed {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // math/rand suffices for image initialization

	shape := tensor.Shape{cfg.batch, 3, cfg.height, cfg.width}
	raw, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("param: %v", err))
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(rng.NormFloat64()) * cfg.sd
	}
	buffer := nn.NewParameter("pixels", tensor.New[float32](raw, backend))

	var kernel *tensor.RawTensor
	if cfg.decorrelate {
		kernel = colorKernel(backend.Device())
	}

	imageFn := func() *tensor.Tensor[float32, B] {
		out := buffer.Tensor().Raw()
		if kernel != nil {
			out = backend.Conv2D(out, kernel, 1, 0)
		}
		sigmoid, ok := any(backend).(nn.SigmoidBackend)
		if !ok {
			panic("param: backend must implement Sigmoid (use autodiff.AutodiffBackend)")
		}
		return tensor.New[float32](sigmoid.Sigmoid(out), backend)
	}

	return &Parameterization[B]{
		Params:  []*nn.Parameter[B]{buffer},
		ImageFn: imageFn,
		Batch:   cfg.batch,
		Height:  cfg.height,
		Width:   cfg.width,
	}
}

// colorKernel packs the correlation matrix into a [3,3,1,1] convolution
// kernel: output channel c mixes input channels by row c.
func colorKernel(device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(tensor.Shape{3, 3, 1, 1}, tensor.Float32, device)
	if err != nil {
		panic(fmt.Sprintf("param: %v", err))
	}
	data := raw.AsFloat32()
	for out := 0; out < 3; out++ {
		for in := 0; in < 3; in++ {
			data[out*3+in] = colorCorrelation[out][in]
		}
	}
	return raw
}
