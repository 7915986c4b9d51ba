package checkpoint

import (
	"fmt"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// Save writes a model's state dictionary to path in .lumen format.
//
// modelType is a free-form label stored in the header ("convnet",
// "inception", ...). metadata is optional and may be nil.
func Save(model nn.Stateful, path, modelType string, metadata map[string]string) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()

	if err := w.WriteStateDict(model.StateDict(), modelType, metadata); err != nil {
		return err
	}
	return w.Close()
}

// Load reads the checkpoint at path and copies its tensors into the
// model's parameters, matching by state-dict name. Missing names, shape
// mismatches and dtype mismatches are reported by the model's
// LoadStateDict.
func Load(path string, backend tensor.Backend, model nn.Stateful) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	stateDict, err := r.ReadStateDict(backend)
	if err != nil {
		return err
	}
	if err := model.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
