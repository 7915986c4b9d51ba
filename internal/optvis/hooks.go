package optvis

import (
	"fmt"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// Reserved activation paths understood by Hooks.Get in addition to the
// model's layer paths.
const (
	// HookInput resolves to a fresh evaluation of the image function,
	// letting objectives regularize the input itself.
	HookInput = "input"

	// HookLabels resolves to the model's final output from the most
	// recent forward pass.
	HookLabels = "labels"
)

// Hooks captures layer activations during a model's forward pass and
// serves them to objectives by path.
//
// Each forward pass overwrites the previous activations. Objectives
// therefore always see a consistent set from a single pass, and when a
// pass fails halfway the untouched entries still hold the last
// successful values.
type Hooks[B tensor.Backend] struct {
	model       nn.Observable[B]
	imageFn     func() *tensor.Tensor[float32, B]
	paths       []string
	known       map[string]bool
	activations map[string]*tensor.Tensor[float32, B]
	labels      *tensor.Tensor[float32, B]
}

// HookModel prepares activation capture for every named layer of model.
// The model must be Observable so its forward pass can report
// activations; a Container model additionally has its layer tree
// indexed up front so unknown paths can be reported against the full
// list before any forward pass runs.
func HookModel[B tensor.Backend](model nn.Module[B], imageFn func() *tensor.Tensor[float32, B]) (*Hooks[B], error) {
	observable, ok := model.(nn.Observable[B])
	if !ok {
		return nil, configErrorf("model %T cannot report activations (it does not implement nn.Observable)", model)
	}

	h := &Hooks[B]{
		model:       observable,
		imageFn:     imageFn,
		known:       make(map[string]bool),
		activations: make(map[string]*tensor.Tensor[float32, B]),
	}

	if _, isContainer := model.(nn.Container[B]); isContainer {
		nn.Walk(model, func(path string, _ nn.Module[B]) {
			h.register(path)
		})
		if len(h.paths) == 0 {
			return nil, configErrorf("model %T has no named layers to observe", model)
		}
	}
	return h, nil
}

func (h *Hooks[B]) register(path string) {
	if !h.known[path] {
		h.known[path] = true
		h.paths = append(h.paths, path)
	}
}

// Forward runs the model on input, capturing every reported activation.
// A panic inside the model is recovered and returned as a
// *ForwardPassError; activations captured before the panic remain
// stored.
func (h *Hooks[B]) Forward(input *tensor.Tensor[float32, B]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ForwardPassError{Panic: r}
		}
	}()

	output := h.model.ForwardObserved(input, func(path string, activation *tensor.Tensor[float32, B]) {
		h.register(path)
		h.activations[path] = activation
	})
	h.labels = output
	return nil
}

// Get returns the activation stored under path. The reserved paths
// "input" and "labels" resolve to the current image and the final model
// output. Unknown paths and paths no forward pass has populated yet
// fail with a ConfigurationError listing the registered layers.
func (h *Hooks[B]) Get(path string) (*tensor.Tensor[float32, B], error) {
	switch path {
	case HookInput:
		if h.imageFn == nil {
			return nil, configErrorf("no image function bound, %q is unavailable", HookInput)
		}
		return h.imageFn(), nil
	case HookLabels:
		if h.labels == nil {
			return nil, configErrorf("no forward pass has run yet, %q is empty", HookLabels)
		}
		return h.labels, nil
	}

	if activation, ok := h.activations[path]; ok {
		return activation, nil
	}
	reason := fmt.Sprintf("unknown layer %q", path)
	if h.known[path] {
		reason = fmt.Sprintf("layer %q has not been reached by a forward pass", path)
	}
	return nil, &ConfigurationError{Reason: reason, Alternatives: h.Paths()}
}

// Paths returns the registered layer paths in registration order.
func (h *Hooks[B]) Paths() []string {
	out := make([]string, len(h.paths))
	copy(out, h.paths)
	return out
}
