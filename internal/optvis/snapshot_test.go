package optvis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lumen/internal/tensor"
)

func TestNewSnapshot_ChannelLastAndClamped(t *testing.T) {
	// [1,3,1,2]: channel 0 = {-0.5, 0.25}, channel 1 = {0.5, 1.5},
	// channel 2 = {0.75, 1.0}.
	img := tensorOf(t, []float32{-0.5, 0.25, 0.5, 1.5, 0.75, 1.0}, tensor.Shape{1, 3, 1, 2})

	s := newSnapshot(img, 128)

	assert.Equal(t, 1, s.Batch)
	assert.Equal(t, 1, s.Height)
	assert.Equal(t, 2, s.Width)
	assert.Equal(t, 3, s.Channels)
	assert.Equal(t, 128, s.Step)

	assert.InDelta(t, 0.0, s.At(0, 0, 0, 0), 1e-6, "negative values clamp to 0")
	assert.InDelta(t, 0.5, s.At(0, 0, 0, 1), 1e-6)
	assert.InDelta(t, 0.75, s.At(0, 0, 0, 2), 1e-6)
	assert.InDelta(t, 0.25, s.At(0, 0, 1, 0), 1e-6)
	assert.InDelta(t, 1.0, s.At(0, 0, 1, 1), 1e-6, "values above 1 clamp to 1")
	assert.InDelta(t, 1.0, s.At(0, 0, 1, 2), 1e-6)

	// Channel-last layout in the flat buffer.
	assert.Equal(t, []float32{0, 0.5, 0.75, 0.25, 1, 1}, s.Pixels)
}

func TestSnapshot_Image(t *testing.T) {
	img := tensorOf(t, []float32{0, 0.25, 0.5, 0.75, 1, 0}, tensor.Shape{1, 3, 1, 2})

	s := newSnapshot(img, 1)
	out := s.Image(0)
	require.Equal(t, 2, out.Bounds().Dx())
	require.Equal(t, 1, out.Bounds().Dy())

	left := out.NRGBAAt(0, 0)
	assert.Equal(t, uint8(0), left.R)
	assert.Equal(t, uint8(128), left.G)
	assert.Equal(t, uint8(255), left.B)
	assert.Equal(t, uint8(255), left.A)

	right := out.NRGBAAt(1, 0)
	assert.Equal(t, uint8(64), right.R)
	assert.Equal(t, uint8(191), right.G)
	assert.Equal(t, uint8(0), right.B)
}

func TestSnapshot_GrayscaleBroadcastsAcrossRGB(t *testing.T) {
	img := tensorOf(t, []float32{0.5}, tensor.Shape{1, 1, 1, 1})

	s := newSnapshot(img, 1)
	px := s.Image(0).NRGBAAt(0, 0)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, px.G, px.B)
}

func TestSnapshot_ImageRejectsBadBatchIndex(t *testing.T) {
	img := tensorOf(t, make([]float32, 3*4), tensor.Shape{1, 3, 2, 2})
	s := newSnapshot(img, 1)

	assert.Panics(t, func() { s.Image(1) })
	assert.Panics(t, func() { s.Image(-1) })
}
