package zoo

import (
	"fmt"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/optvis/transform"
	"github.com/born-ml/lumen/internal/tensor"
)

// InceptionBlock runs three parallel branches over its input and sums
// them into a common width:
//
//   - a 1x1 convolution
//   - a 1x1 reduction followed by a 3x3 convolution
//   - a same-size 3x3 max pool followed by a 1x1 projection
//
// Summing (rather than concatenating) keeps every branch at the output
// width, so the block composes freely while still mixing receptive
// field sizes the way inception-style networks do.
type InceptionBlock[B tensor.Backend] struct {
	direct *nn.Conv2D[B]
	reduce *nn.Conv2D[B]
	conv   *nn.Conv2D[B]
	proj   *nn.Conv2D[B]
	pool   *nn.MaxPool2D[B]
	act    *nn.ReLU[B]
}

// NewInceptionBlock creates a block mapping inChannels feature maps to
// width feature maps. The width must be even so the 3x3 branch can
// reduce to half width first.
func NewInceptionBlock[B tensor.Backend](inChannels, width int, backend B) *InceptionBlock[B] {
	if width%2 != 0 {
		panic(fmt.Sprintf("inception block: width must be even, got %d", width))
	}
	return &InceptionBlock[B]{
		direct: nn.NewConv2D(inChannels, width, 1, 1, 1, 0, true, backend),
		reduce: nn.NewConv2D(inChannels, width/2, 1, 1, 1, 0, true, backend),
		conv:   nn.NewConv2D(width/2, width, 3, 3, 1, 1, true, backend),
		proj:   nn.NewConv2D(inChannels, width, 1, 1, 1, 0, true, backend),
		pool:   nn.NewMaxPool2D(3, 1, backend),
		act:    nn.NewReLU[B](),
	}
}

// Forward performs the forward pass, preserving spatial size.
func (b *InceptionBlock[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return b.forward(input, nil)
}

// ForwardObserved reports each branch's activated output under its
// branch name (direct, reduce, conv, proj), so individual branches can
// be targeted by visualization objectives.
func (b *InceptionBlock[B]) ForwardObserved(input *tensor.Tensor[float32, B], observe nn.Observer[B]) *tensor.Tensor[float32, B] {
	return b.forward(input, observe)
}

func (b *InceptionBlock[B]) forward(input *tensor.Tensor[float32, B], observe nn.Observer[B]) *tensor.Tensor[float32, B] {
	report := func(name string, t *tensor.Tensor[float32, B]) {
		if observe != nil {
			observe(name, t)
		}
	}

	direct := b.act.Forward(b.direct.Forward(input))
	report("direct", direct)

	reduced := b.act.Forward(b.reduce.Forward(input))
	report("reduce", reduced)
	conved := b.act.Forward(b.conv.Forward(reduced))
	report("conv", conved)

	padded := input.Pad2D(1, 1, 1, 1, tensor.PadConstant)
	pooled := b.act.Forward(b.proj.Forward(b.pool.Forward(padded)))
	report("proj", pooled)

	return direct.Add(conved).Add(pooled)
}

// Children returns the branch convolutions in forward order.
func (b *InceptionBlock[B]) Children() []nn.NamedModule[B] {
	return []nn.NamedModule[B]{
		{Name: "direct", Module: b.direct},
		{Name: "reduce", Module: b.reduce},
		{Name: "conv", Module: b.conv},
		{Name: "proj", Module: b.proj},
	}
}

// Parameters returns the parameters of all branch convolutions.
func (b *InceptionBlock[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, conv := range []*nn.Conv2D[B]{b.direct, b.reduce, b.conv, b.proj} {
		params = append(params, conv.Parameters()...)
	}
	return params
}

// String returns a short description of the block.
func (b *InceptionBlock[B]) String() string {
	return fmt.Sprintf("InceptionBlock(%d->%d)", b.direct.InChannels(), b.direct.OutChannels())
}

// StateDict returns branch parameters under branch-prefixed names.
func (b *InceptionBlock[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for prefix, conv := range b.branches() {
		for name, raw := range conv.StateDict() {
			out[prefix+"."+name] = raw
		}
	}
	return out
}

// LoadStateDict restores branch parameters saved by StateDict.
func (b *InceptionBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for prefix, conv := range b.branches() {
		sub := make(map[string]*tensor.RawTensor)
		for name, raw := range stateDict {
			if len(name) > len(prefix)+1 && name[:len(prefix)+1] == prefix+"." {
				sub[name[len(prefix)+1:]] = raw
			}
		}
		if len(sub) == 0 {
			return fmt.Errorf("no parameters for branch %q in state dict", prefix)
		}
		if err := conv.LoadStateDict(sub); err != nil {
			return fmt.Errorf("load branch %q: %w", prefix, err)
		}
	}
	return nil
}

func (b *InceptionBlock[B]) branches() map[string]*nn.Conv2D[B] {
	return map[string]*nn.Conv2D[B]{
		"direct": b.direct,
		"reduce": b.reduce,
		"conv":   b.conv,
		"proj":   b.proj,
	}
}

// InceptionNet is a miniature inception-style classifier built from
// InceptionBlocks. It carries the preprocessing transform the
// architecture family was trained with.
type InceptionNet[B tensor.Backend] struct {
	*nn.Sequential[B]
}

// Inception builds the network: a strided 7x7 stem followed by two
// pairs of mixed blocks, global average pooling, and a 10-way head.
func Inception[B tensor.Backend](backend B) *InceptionNet[B] {
	seq := nn.NewSequential[B]().
		Add("conv1", nn.NewConv2D(3, 16, 7, 7, 2, 3, true, backend)).
		Add("relu1", nn.NewReLU[B]()).
		Add("pool1", nn.NewMaxPool2D(2, 2, backend)).
		Add("mixed3a", NewInceptionBlock(16, 32, backend)).
		Add("mixed3b", NewInceptionBlock(32, 32, backend)).
		Add("pool2", nn.NewMaxPool2D(2, 2, backend)).
		Add("mixed4a", NewInceptionBlock(32, 64, backend)).
		Add("mixed4b", NewInceptionBlock(64, 64, backend)).
		Add("gap", nn.NewGlobalAvgPool2D[B]()).
		Add("logits", nn.NewLinear(64, 10, backend))
	return &InceptionNet[B]{Sequential: seq}
}

// Preprocess maps [0,1] images to the [-117,138] range inception-style
// stems expect (pixel value minus the mean of 117).
func (n *InceptionNet[B]) Preprocess() transform.Transform[B] {
	return func(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
		return t.MulScalar(255).AddScalar(-117)
	}
}
