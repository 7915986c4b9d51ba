package nn

import (
	"github.com/born-ml/lumen/internal/tensor"
)

// Walk visits every descendant of a Container depth first, calling fn
// with each child's full activation path. Parents are visited before
// their children; modules that are not containers have no descendants
// to visit.
func Walk[B tensor.Backend](m Module[B], fn func(path string, child Module[B])) {
	walk("", m, fn)
}

func walk[B tensor.Backend](prefix string, m Module[B], fn func(path string, child Module[B])) {
	container, ok := m.(Container[B])
	if !ok {
		return
	}
	for _, child := range container.Children() {
		path := child.Name
		if prefix != "" {
			path = prefix + "->" + child.Name
		}
		fn(path, child.Module)
		walk(path, child.Module, fn)
	}
}
