package param_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/optvis/param"
	"github.com/born-ml/lumen/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func TestImage_Defaults(t *testing.T) {
	backend := autodiff.New(cpu.New())

	p := param.Image(16, backend, param.WithSeed(1))

	require.Len(t, p.Params, 1)
	assert.Equal(t, "pixels", p.Params[0].Name())
	assert.Equal(t, tensor.Shape{1, 3, 16, 16}, p.Params[0].Tensor().Shape())
	assert.Equal(t, 1, p.Batch)
	assert.Equal(t, 16, p.Height)
	assert.Equal(t, 16, p.Width)

	img := p.ImageFn()
	require.Equal(t, tensor.Shape{1, 3, 16, 16}, img.Shape())
	for _, v := range img.Data() {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestImage_Options(t *testing.T) {
	backend := autodiff.New(cpu.New())

	p := param.Image(16, backend,
		param.WithBatch(2),
		param.WithSize(8, 12),
		param.WithSD(0.5),
		param.WithSeed(3),
	)

	assert.Equal(t, tensor.Shape{2, 3, 8, 12}, p.Params[0].Tensor().Shape())
	assert.Equal(t, tensor.Shape{2, 3, 8, 12}, p.ImageFn().Shape())
}

func TestImage_SeedDeterminism(t *testing.T) {
	backend := autodiff.New(cpu.New())

	first := param.Image(8, backend, param.WithSeed(42)).ImageFn()
	second := param.Image(8, backend, param.WithSeed(42)).ImageFn()
	third := param.Image(8, backend, param.WithSeed(43)).ImageFn()

	assert.Equal(t, first.Data(), second.Data())
	assert.NotEqual(t, first.Data(), third.Data())
}

func TestImage_WithoutDecorrelation(t *testing.T) {
	backend := autodiff.New(cpu.New())

	// A zero buffer without decorrelation is exactly sigmoid(0).
	p := param.Image(4, backend, param.WithDecorrelate(false), param.WithSD(0), param.WithSeed(1))
	for _, v := range p.ImageFn().Data() {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestImage_GradientReachesBuffer(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := param.Image(4, backend, param.WithSeed(7))

	backend.GetTape().StartRecording()
	defer backend.GetTape().StopRecording()

	loss := p.ImageFn().Mean()
	grads := autodiff.Backward(loss, backend)

	grad, ok := grads[p.Params[0].Tensor().Raw()]
	require.True(t, ok, "buffer should receive a gradient through conv and sigmoid")
	require.Equal(t, p.Params[0].Tensor().Shape(), grad.Shape())

	nonzero := false
	for _, v := range grad.AsFloat32() {
		if v != 0 {
			nonzero = true
			break
		}
	}
	assert.True(t, nonzero, "gradient should be nonzero")
}

func TestImage_InvalidConfig(t *testing.T) {
	backend := autodiff.New(cpu.New())

	assert.Panics(t, func() { param.Image(0, backend) })
	assert.Panics(t, func() { param.Image(8, backend, param.WithBatch(0)) })
}
