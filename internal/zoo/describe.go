package zoo

import (
	"fmt"
	"strings"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// LayerInfo describes one addressable layer of a model.
type LayerInfo struct {
	Path   string
	Kind   string
	Params int
}

// Describe lists every layer of a model with its path, a human-readable
// kind, and its trainable parameter count.
func Describe[B tensor.Backend](model nn.Module[B]) []LayerInfo {
	var out []LayerInfo
	nn.Walk(model, func(path string, child nn.Module[B]) {
		out = append(out, LayerInfo{
			Path:   path,
			Kind:   kindOf(child),
			Params: paramCount(child),
		})
	})
	return out
}

// LayerPaths returns the paths of layers with trainable parameters, the
// usual targets for visualization objectives.
func LayerPaths[B tensor.Backend](model nn.Module[B]) []string {
	var out []string
	nn.Walk(model, func(path string, child nn.Module[B]) {
		if len(child.Parameters()) > 0 {
			out = append(out, path)
		}
	})
	return out
}

func kindOf[B tensor.Backend](m nn.Module[B]) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", m), "*")
}

func paramCount[B tensor.Backend](m nn.Module[B]) int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Tensor().Shape().NumElements()
	}
	return total
}
