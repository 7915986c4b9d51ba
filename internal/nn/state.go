package nn

import (
	"fmt"

	"github.com/born-ml/lumen/internal/tensor"
)

// loadParam copies src into the parameter registered under name,
// validating presence, shape and dtype. Shared by the layers'
// LoadStateDict implementations.
func loadParam[B tensor.Backend](param *Parameter[B], stateDict map[string]*tensor.RawTensor, name string) error {
	src, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("missing %s in state dict", name)
	}

	dst := param.Tensor().Raw()
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", name, dst.Shape(), src.Shape())
	}
	if src.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", name, src.DType())
	}

	copy(dst.AsFloat32(), src.AsFloat32())
	return nil
}
