package optvis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// panicAfter forwards its input unchanged until call number panicFrom,
// then panics on every call.
type panicAfter struct {
	calls     int
	panicFrom int
}

func (p *panicAfter) Forward(input *tensor.Tensor[float32, Backend]) *tensor.Tensor[float32, Backend] {
	p.calls++
	if p.calls >= p.panicFrom {
		panic("simulated engine failure")
	}
	return input
}

func (p *panicAfter) Parameters() []*nn.Parameter[Backend] { return nil }

func denseModel(backend Backend) *nn.Sequential[Backend] {
	return nn.NewSequential[Backend]().
		Add("fc1", nn.NewLinear(2, 3, backend)).
		Add("act", nn.NewReLU[Backend]()).
		Add("fc2", nn.NewLinear(3, 2, backend))
}

func TestHookModel_IndexesContainerLayers(t *testing.T) {
	backend := autodiff.New(cpu.New())

	h, err := HookModel[Backend](denseModel(backend), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fc1", "act", "fc2"}, h.Paths())
}

func TestHookModel_RejectsUnobservableModels(t *testing.T) {
	backend := autodiff.New(cpu.New())

	_, err := HookModel[Backend](nn.NewLinear(2, 2, backend), nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "cannot report activations")
}

func TestHookModel_RejectsEmptyContainers(t *testing.T) {
	_, err := HookModel[Backend](nn.NewSequential[Backend](), nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "no named layers")
}

func TestHooks_ForwardCapturesActivations(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := denseModel(backend)

	h, err := HookModel[Backend](model, nil)
	require.NoError(t, err)

	input := tensorOf(t, []float32{1, -1}, tensor.Shape{1, 2})
	require.NoError(t, h.Forward(input))

	for _, path := range []string{"fc1", "act", "fc2"} {
		act, err := h.Get(path)
		require.NoErrorf(t, err, "activation for %s", path)
		assert.NotNil(t, act)
	}

	fc1, err := h.Get("fc1")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3}, fc1.Shape())
}

func TestHooks_ForwardOverwritesPreviousPass(t *testing.T) {
	backend := autodiff.New(cpu.New())
	h, err := HookModel[Backend](denseModel(backend), nil)
	require.NoError(t, err)

	require.NoError(t, h.Forward(tensorOf(t, []float32{1, 2}, tensor.Shape{1, 2})))
	first, err := h.Get("fc2")
	require.NoError(t, err)

	require.NoError(t, h.Forward(tensorOf(t, []float32{3, 4}, tensor.Shape{1, 2})))
	second, err := h.Get("fc2")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestHooks_GetLabels(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := denseModel(backend)
	h, err := HookModel[Backend](model, nil)
	require.NoError(t, err)

	_, err = h.Get(HookLabels)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr, "labels before any forward pass should fail")

	input := tensorOf(t, []float32{0.5, -0.5}, tensor.Shape{1, 2})
	require.NoError(t, h.Forward(input))

	labels, err := h.Get(HookLabels)
	require.NoError(t, err)

	want := model.Forward(input)
	assert.InDeltaSlice(t, want.Data(), labels.Data(), 1e-6)
}

func TestHooks_GetInputEvaluatesImageFn(t *testing.T) {
	calls := 0
	imageFn := func() *tensor.Tensor[float32, Backend] {
		calls++
		return tensorOf(t, []float32{float32(calls)}, tensor.Shape{1, 1})
	}

	backend := autodiff.New(cpu.New())
	h, err := HookModel[Backend](denseModel(backend), imageFn)
	require.NoError(t, err)

	first, err := h.Get(HookInput)
	require.NoError(t, err)
	second, err := h.Get(HookInput)
	require.NoError(t, err)

	assert.Equal(t, []float32{1}, first.Data())
	assert.Equal(t, []float32{2}, second.Data(), "input should be re-evaluated on every lookup")
}

func TestHooks_GetUnknownPathListsRegisteredLayers(t *testing.T) {
	backend := autodiff.New(cpu.New())
	h, err := HookModel[Backend](denseModel(backend), nil)
	require.NoError(t, err)

	_, err = h.Get("mixed4a")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "unknown layer")
	assert.Equal(t, []string{"fc1", "act", "fc2"}, cfgErr.Alternatives)
}

func TestHooks_GetRegisteredButNeverPopulated(t *testing.T) {
	backend := autodiff.New(cpu.New())
	h, err := HookModel[Backend](denseModel(backend), nil)
	require.NoError(t, err)

	_, err = h.Get("fc1")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "has not been reached")
}

func TestHooks_ForwardRecoversPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model := nn.NewSequential[Backend]().
		Add("fc1", nn.NewLinear(2, 3, backend)).
		Add("flaky", &panicAfter{panicFrom: 2})

	h, err := HookModel[Backend](model, nil)
	require.NoError(t, err)

	input := tensorOf(t, []float32{1, 1}, tensor.Shape{1, 2})
	require.NoError(t, h.Forward(input), "first pass should succeed")

	err = h.Forward(input)
	var fwdErr *ForwardPassError
	require.ErrorAs(t, err, &fwdErr)
	assert.Contains(t, fwdErr.Error(), "simulated engine failure")

	// Layers observed before the panic keep their fresh activations.
	act, err := h.Get("fc1")
	require.NoError(t, err)
	assert.NotNil(t, act)
}
