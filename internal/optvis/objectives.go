package optvis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/lumen/internal/tensor"
)

type objectiveKind int

const (
	channelObjective objectiveKind = iota
	customObjective
	sumObjective
	scaleObjective
)

// Objective is a differentiable scalar computed from captured
// activations. Leaves select a layer, channel, or single neuron;
// combinators build weighted sums of leaves. Objectives are immutable:
// every combinator returns a new node, so subtrees can be shared and
// reused freely.
//
// An objective evaluates to the quantity being maximized. The render
// loop minimizes its negation.
type Objective[B tensor.Backend] struct {
	kind objectiveKind

	// channel leaves; negative selectors mean "not constrained".
	path    string
	channel int
	x, y    int
	batch   int

	// custom leaves
	fn   func(*Hooks[B]) (*tensor.Tensor[float32, B], error)
	desc string

	// interior nodes
	children []*Objective[B]
	factor   float32
}

// Layer maximizes the mean activation of an entire layer.
func Layer[B tensor.Backend](path string) *Objective[B] {
	return &Objective[B]{kind: channelObjective, path: path, channel: -1, x: -1, y: -1, batch: -1}
}

// Channel maximizes the mean activation of one channel of a layer.
func Channel[B tensor.Backend](path string, channel int) *Objective[B] {
	if channel < 0 {
		panic(fmt.Sprintf("objective: channel must be non-negative, got %d", channel))
	}
	return &Objective[B]{kind: channelObjective, path: path, channel: channel, x: -1, y: -1, batch: -1}
}

// Neuron maximizes a single spatial position (column x, row y) of one
// channel. The layer must produce a 4D activation.
func Neuron[B tensor.Backend](path string, channel, x, y int) *Objective[B] {
	if channel < 0 {
		panic(fmt.Sprintf("objective: channel must be non-negative, got %d", channel))
	}
	if x < 0 || y < 0 {
		panic(fmt.Sprintf("objective: neuron position must be non-negative, got (%d,%d)", x, y))
	}
	return &Objective[B]{kind: channelObjective, path: path, channel: channel, x: x, y: y, batch: -1}
}

// ForBatch restricts a layer, channel, or neuron objective to a single
// batch entry, so parameterizations that optimize several images at
// once can give each image its own target. Applying it to a custom
// objective or a combinator panics; restrict the leaves instead.
func (o *Objective[B]) ForBatch(b int) *Objective[B] {
	if o.kind != channelObjective {
		panic(fmt.Sprintf("objective: ForBatch applies to layer selections, not %s", o.Description()))
	}
	if b < 0 {
		panic(fmt.Sprintf("objective: batch index must be non-negative, got %d", b))
	}
	clone := *o
	clone.batch = b
	return &clone
}

// Custom wraps an arbitrary function of the captured activations as an
// objective leaf. The function must return a scalar tensor built from
// backend operations so gradients can flow back to the image.
func Custom[B tensor.Backend](desc string, fn func(*Hooks[B]) (*tensor.Tensor[float32, B], error)) *Objective[B] {
	return &Objective[B]{kind: customObjective, desc: desc, fn: fn}
}

// Add returns an objective evaluating to o + other.
func (o *Objective[B]) Add(other *Objective[B]) *Objective[B] {
	return &Objective[B]{kind: sumObjective, children: []*Objective[B]{o, other}}
}

// Sub returns an objective evaluating to o - other.
func (o *Objective[B]) Sub(other *Objective[B]) *Objective[B] {
	return o.Add(other.Neg())
}

// Neg returns an objective evaluating to -o.
func (o *Objective[B]) Neg() *Objective[B] {
	return o.MulScalar(-1)
}

// MulScalar returns an objective evaluating to factor * o.
func (o *Objective[B]) MulScalar(factor float32) *Objective[B] {
	return &Objective[B]{kind: scaleObjective, factor: factor, children: []*Objective[B]{o}}
}

// DivScalar returns an objective evaluating to o / divisor. A zero
// divisor is rejected at construction rather than surfacing as Inf
// losses mid-render.
func (o *Objective[B]) DivScalar(divisor float32) (*Objective[B], error) {
	if divisor == 0 {
		return nil, configErrorf("objective %q divided by zero", o.Description())
	}
	return o.MulScalar(1 / divisor), nil
}

// Evaluate computes the objective's current value from the activations
// in h. The result is a scalar tensor on the gradient tape.
func (o *Objective[B]) Evaluate(h *Hooks[B]) (*tensor.Tensor[float32, B], error) {
	switch o.kind {
	case channelObjective:
		return o.evaluateChannel(h)

	case customObjective:
		return o.fn(h)

	case sumObjective:
		total, err := o.children[0].Evaluate(h)
		if err != nil {
			return nil, err
		}
		for _, child := range o.children[1:] {
			v, err := child.Evaluate(h)
			if err != nil {
				return nil, err
			}
			total = total.Add(v)
		}
		return total, nil

	case scaleObjective:
		v, err := o.children[0].Evaluate(h)
		if err != nil {
			return nil, err
		}
		return v.MulScalar(o.factor), nil

	default:
		panic(fmt.Sprintf("objective: unknown kind %d", o.kind))
	}
}

func (o *Objective[B]) evaluateChannel(h *Hooks[B]) (*tensor.Tensor[float32, B], error) {
	act, err := h.Get(o.path)
	if err != nil {
		return nil, err
	}
	shape := act.Shape()

	if o.batch >= 0 {
		if o.batch >= shape[0] {
			return nil, configErrorf("batch index %d out of range for layer %q with batch size %d", o.batch, o.path, shape[0])
		}
		act = act.Narrow(0, o.batch, 1)
	}

	if o.channel >= 0 {
		if len(shape) < 2 {
			return nil, configErrorf("layer %q activation has shape %v, no channel dimension to select", o.path, shape)
		}
		if o.channel >= shape[1] {
			return nil, configErrorf("channel %d out of range for layer %q with %d channels", o.channel, o.path, shape[1])
		}
		act = act.Narrow(1, o.channel, 1)
	}

	if o.x >= 0 {
		if len(shape) != 4 {
			return nil, configErrorf("neuron objective needs a 4D activation, layer %q has shape %v", o.path, shape)
		}
		if o.y >= shape[2] || o.x >= shape[3] {
			return nil, configErrorf("neuron (%d,%d) out of range for layer %q with spatial size %dx%d",
				o.x, o.y, o.path, shape[3], shape[2])
		}
		act = act.Narrow(2, o.y, 1).Narrow(3, o.x, 1)
	}

	return act.Mean(), nil
}

// Description renders the objective tree for logs and run records.
func (o *Objective[B]) Description() string {
	switch o.kind {
	case channelObjective:
		var base string
		switch {
		case o.x >= 0:
			base = fmt.Sprintf("neuron(%s:%d @%d,%d)", o.path, o.channel, o.x, o.y)
		case o.channel >= 0:
			base = fmt.Sprintf("channel(%s:%d)", o.path, o.channel)
		default:
			base = fmt.Sprintf("layer(%s)", o.path)
		}
		if o.batch >= 0 {
			base += fmt.Sprintf("[batch %d]", o.batch)
		}
		return base

	case customObjective:
		return o.desc

	case sumObjective:
		parts := make([]string, len(o.children))
		for i, child := range o.children {
			parts[i] = child.Description()
		}
		return strings.Join(parts, " + ")

	case scaleObjective:
		inner := o.children[0].Description()
		if o.children[0].kind == sumObjective {
			inner = "(" + inner + ")"
		}
		if o.factor == -1 {
			return "-" + inner
		}
		return fmt.Sprintf("%g * %s", o.factor, inner)

	default:
		panic(fmt.Sprintf("objective: unknown kind %d", o.kind))
	}
}

// As normalizes the accepted objective forms into an *Objective:
//
//   - *Objective is passed through unchanged
//   - "path" selects a whole layer, "path:3" selects channel 3
//   - func(*Hooks[B]) (*tensor.Tensor[float32, B], error) and the
//     error-free variant become custom objectives
func As[B tensor.Backend](spec any) (*Objective[B], error) {
	switch v := spec.(type) {
	case *Objective[B]:
		if v == nil {
			return nil, configErrorf("objective is nil")
		}
		return v, nil

	case string:
		return parseObjective[B](v)

	case func(*Hooks[B]) (*tensor.Tensor[float32, B], error):
		return Custom("custom", v), nil

	case func(*Hooks[B]) *tensor.Tensor[float32, B]:
		return Custom("custom", func(h *Hooks[B]) (*tensor.Tensor[float32, B], error) {
			return v(h), nil
		}), nil

	case nil:
		return nil, configErrorf("objective is nil")

	default:
		return nil, configErrorf("cannot interpret %T as an objective (want *Objective, \"layer\" or \"layer:channel\" string, or objective func)", spec)
	}
}

func parseObjective[B tensor.Backend](spec string) (*Objective[B], error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, configErrorf("objective string is empty")
	}
	idx := strings.LastIndex(spec, ":")
	if idx < 0 {
		return Layer[B](spec), nil
	}

	path, channelStr := spec[:idx], spec[idx+1:]
	if path == "" {
		return nil, configErrorf("objective %q has an empty layer path", spec)
	}
	channel, err := strconv.Atoi(channelStr)
	if err != nil {
		return nil, configErrorf("objective %q: channel %q is not an integer", spec, channelStr)
	}
	if channel < 0 {
		return nil, configErrorf("objective %q: channel must be non-negative", spec)
	}
	return Channel[B](path, channel), nil
}
