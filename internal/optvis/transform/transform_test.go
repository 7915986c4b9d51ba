package transform_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/optvis/transform"
	"github.com/born-ml/lumen/internal/tensor"
)

type Backend = *cpu.CPUBackend

func image(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor[float32, Backend] {
	t.Helper()
	img, err := tensor.FromSlice(data, shape, cpu.New())
	require.NoError(t, err)
	return img
}

func TestCompose_AppliesInOrder(t *testing.T) {
	img := image(t, []float32{0, 1, 2, 3}, tensor.Shape{1, 1, 2, 2})

	addOne := transform.Transform[Backend](func(x *tensor.Tensor[float32, Backend]) *tensor.Tensor[float32, Backend] {
		return x.AddScalar(1)
	})
	double := transform.Transform[Backend](func(x *tensor.Tensor[float32, Backend]) *tensor.Tensor[float32, Backend] {
		return x.MulScalar(2)
	})

	out := transform.Compose(addOne, double)(img)
	assert.Equal(t, []float32{2, 4, 6, 8}, out.Data())
}

func TestPadValue_FillsBordersWithGray(t *testing.T) {
	img := image(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})

	out := transform.PadValue[Backend](1, 0.5)(img)

	require.Equal(t, tensor.Shape{1, 1, 4, 4}, out.Shape())
	data := out.Data()
	assert.InDelta(t, 0.5, data[0], 1e-6, "corner should hold the pad value")
	assert.InDelta(t, 0.5, data[3], 1e-6)
	assert.InDelta(t, 1.0, data[5], 1e-6, "interior should be untouched")
	assert.InDelta(t, 1.0, data[10], 1e-6)
}

func TestJitter_CropsByDisplacement(t *testing.T) {
	data := make([]float32, 64)
	for i := range data {
		data[i] = float32(i)
	}
	img := image(t, data, tensor.Shape{1, 1, 8, 8})

	out := transform.Jitter[Backend](2, rand.New(rand.NewSource(1)))(img)
	assert.Equal(t, tensor.Shape{1, 1, 6, 6}, out.Shape())
}

func TestJitter_DeterministicUnderSeed(t *testing.T) {
	data := make([]float32, 64)
	for i := range data {
		data[i] = float32(i)
	}
	img := image(t, data, tensor.Shape{1, 1, 8, 8})

	first := transform.Jitter[Backend](3, rand.New(rand.NewSource(42)))(img)
	second := transform.Jitter[Backend](3, rand.New(rand.NewSource(42)))(img)
	assert.Equal(t, first.Data(), second.Data())
}

func TestJitter_RejectsOversizedDisplacement(t *testing.T) {
	assert.Panics(t, func() { transform.Jitter[Backend](0, rand.New(rand.NewSource(1))) })

	img := image(t, make([]float32, 16), tensor.Shape{1, 1, 4, 4})
	jitter := transform.Jitter[Backend](4, rand.New(rand.NewSource(1)))
	assert.Panics(t, func() { jitter(img) })
}

func TestRandomScale_SingleFactor(t *testing.T) {
	img := image(t, make([]float32, 64), tensor.Shape{1, 1, 8, 8})

	out := transform.RandomScale[Backend]([]float32{0.5}, rand.New(rand.NewSource(1)))(img)
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, out.Shape())
}

func TestResize_PreservesCorners(t *testing.T) {
	img := image(t, []float32{0, 2, 4, 6}, tensor.Shape{1, 1, 2, 2})

	out := transform.Resize[Backend](4, 4)(img)
	require.Equal(t, tensor.Shape{1, 1, 4, 4}, out.Shape())
	data := out.Data()
	assert.InDelta(t, 0.0, data[0], 1e-6)
	assert.InDelta(t, 2.0, data[3], 1e-6)
	assert.InDelta(t, 4.0, data[12], 1e-6)
	assert.InDelta(t, 6.0, data[15], 1e-6)
}

func TestNormalize_CentersChannelMeans(t *testing.T) {
	data := []float32{
		transform.ImageNetMean[0],
		transform.ImageNetMean[1],
		transform.ImageNetMean[2],
	}
	img := image(t, data, tensor.Shape{1, 3, 1, 1})

	out := transform.Normalize[Backend](transform.ImageNetMean, transform.ImageNetStd)(img)
	for i, v := range out.Data() {
		assert.InDeltaf(t, 0.0, v, 1e-6, "channel %d should normalize to zero", i)
	}
}

func TestNormalize_RejectsNonRGB(t *testing.T) {
	img := image(t, make([]float32, 4), tensor.Shape{1, 1, 2, 2})
	normalize := transform.Normalize[Backend](transform.ImageNetMean, transform.ImageNetStd)
	assert.Panics(t, func() { normalize(img) })
}

func TestStandard_KeepsImageSquareWithinBounds(t *testing.T) {
	img := image(t, make([]float32, 3*128*128), tensor.Shape{1, 3, 128, 128})

	rng := rand.New(rand.NewSource(7))
	out := transform.Compose(transform.Standard[Backend](rng)...)(img)

	shape := out.Shape()
	require.Len(t, shape, 4)
	assert.Equal(t, 3, shape[1])
	assert.Equal(t, shape[2], shape[3], "square input should stay square")

	// pad(12) then jitter(8) gives 144, rescale by at most 10%, jitter(4).
	assert.GreaterOrEqual(t, shape[2], 125)
	assert.LessOrEqual(t, shape[2], 155)
}
