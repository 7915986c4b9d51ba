// Package zoo provides small reference models for feature
// visualization and training demos.
//
// The models are built from named layers so every interesting
// activation is addressable by path ("conv1", "mixed4a", ...). Both
// architectures end in global average pooling and therefore accept any
// input resolution, which matters for visualization: rendered images
// are usually larger than the training inputs.
package zoo

import (
	"fmt"
	"strings"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// Models lists the buildable model names.
func Models() []string {
	return []string{"convnet", "inception"}
}

// Build constructs a model by name.
func Build[B tensor.Backend](name string, backend B) (nn.Module[B], error) {
	switch strings.ToLower(name) {
	case "convnet":
		return ConvNet(backend), nil
	case "inception":
		return Inception(backend), nil
	default:
		return nil, fmt.Errorf("unknown model %q (available: %s)", name, strings.Join(Models(), ", "))
	}
}
