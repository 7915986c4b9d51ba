package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/checkpoint"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/zoo"
)

// Backend is the tensor engine every subcommand runs on.
type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() Backend {
	return autodiff.New(cpu.New())
}

// buildModel resolves the -model flag: an architecture name from the
// zoo, or a .lumen checkpoint whose header names the architecture to
// rebuild. A non-empty weights path is loaded into the model, with the
// format picked by extension (.lumen or .safetensors).
func buildModel(spec, weights string, backend Backend) (nn.Module[Backend], error) {
	name := spec
	if strings.HasSuffix(spec, ".lumen") {
		r, err := checkpoint.NewReader(spec)
		if err != nil {
			return nil, err
		}
		name = r.Header().ModelType
		_ = r.Close()
		if name == "" {
			return nil, fmt.Errorf("%s does not record its architecture; pass -model <name> -weights %s", spec, spec)
		}
		if weights == "" {
			weights = spec
		}
	}

	model, err := zoo.Build(name, backend)
	if err != nil {
		return nil, err
	}
	if weights == "" {
		return model, nil
	}

	stateful, ok := model.(nn.Stateful)
	if !ok {
		return nil, fmt.Errorf("model %s does not support loading weights", name)
	}
	switch ext := filepath.Ext(weights); ext {
	case ".lumen":
		err = checkpoint.Load(weights, backend, stateful)
	case ".safetensors":
		err = checkpoint.ImportSafetensors(weights, backend, stateful)
	default:
		err = fmt.Errorf("unsupported weights format %q (want .lumen or .safetensors)", ext)
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}
