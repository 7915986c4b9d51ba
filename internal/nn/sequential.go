package nn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/lumen/internal/tensor"
)

// Sequential is a container module that chains named children together.
//
// Each child's output becomes the next child's input. Naming the
// children makes every layer addressable, which the activation capture
// layer relies on: the child registered as "conv1" is reachable under
// the path "conv1", and children of a nested Sequential registered as
// "block1" are reachable under "block1->...".
//
// Example:
//
//	model := nn.NewSequential[Backend]().
//	    Add("conv1", nn.NewConv2D(1, 8, 3, 3, 1, 1, true, backend)).
//	    Add("relu1", nn.NewReLU[Backend]()).
//	    Add("pool1", nn.NewMaxPool2D(2, 2, backend))
//
//	output := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	children []NamedModule[B]
}

// NewSequential creates an empty Sequential container.
func NewSequential[B tensor.Backend]() *Sequential[B] {
	return &Sequential[B]{}
}

// Add appends a child module under the given name and returns the
// container for chaining. An empty name is replaced by the child's
// index. Duplicate names panic: layer paths must identify exactly one
// submodule.
func (s *Sequential[B]) Add(name string, module Module[B]) *Sequential[B] {
	if name == "" {
		name = strconv.Itoa(len(s.children))
	}
	if strings.Contains(name, "->") {
		panic(fmt.Sprintf("sequential: child name %q must not contain the path separator", name))
	}
	for _, child := range s.children {
		if child.Name == name {
			panic(fmt.Sprintf("sequential: duplicate child name %q", name))
		}
	}
	s.children = append(s.children, NamedModule[B]{Name: name, Module: module})
	return s
}

// Forward applies all children in registration order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, child := range s.children {
		output = child.Module.Forward(output)
	}
	return output
}

// ForwardObserved runs the forward pass and reports every child's
// output to observe. Children that are themselves Observable report
// their internals first, with this container's child name prefixed to
// their paths, then the child's own output is reported under its name.
func (s *Sequential[B]) ForwardObserved(input *tensor.Tensor[float32, B], observe Observer[B]) *tensor.Tensor[float32, B] {
	output := input
	for _, child := range s.children {
		if inner, ok := child.Module.(Observable[B]); ok {
			prefix := child.Name + "->"
			output = inner.ForwardObserved(output, func(path string, t *tensor.Tensor[float32, B]) {
				observe(prefix+path, t)
			})
		} else {
			output = child.Module.Forward(output)
		}
		observe(child.Name, output)
	}
	return output
}

// Children returns the direct children in registration order.
func (s *Sequential[B]) Children() []NamedModule[B] {
	return s.children
}

// Child returns the module registered under name.
func (s *Sequential[B]) Child(name string) (Module[B], bool) {
	for _, child := range s.children {
		if child.Name == name {
			return child.Module, true
		}
	}
	return nil, false
}

// Len returns the number of children.
func (s *Sequential[B]) Len() int {
	return len(s.children)
}

// Parameters returns all trainable parameters from all children.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, child := range s.children {
		params = append(params, child.Module.Parameters()...)
	}
	return params
}

// StateDict returns all stateful children's parameters, keyed by
// "childName.paramName". Children without state contribute nothing.
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, child := range s.children {
		stateful, ok := child.Module.(Stateful)
		if !ok {
			continue
		}
		for name, raw := range stateful.StateDict() {
			stateDict[child.Name+"."+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict loads parameters into the stateful children. Keys must
// use the "childName.paramName" layout produced by StateDict.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, child := range s.children {
		stateful, ok := child.Module.(Stateful)
		if !ok {
			continue
		}

		prefix := child.Name + "."
		childState := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if strings.HasPrefix(key, prefix) {
				childState[key[len(prefix):]] = raw
			}
		}

		if len(childState) == 0 {
			return fmt.Errorf("no parameters for child %q in state dict", child.Name)
		}
		if err := stateful.LoadStateDict(childState); err != nil {
			return fmt.Errorf("load child %q: %w", child.Name, err)
		}
	}
	return nil
}
