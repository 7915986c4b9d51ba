package zoo

import (
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// ConvNet builds a compact convolutional classifier: three conv/ReLU
// stages with pooling, global average pooling, and a 10-way linear
// head. It trains quickly on 32x32 inputs and still produces rich
// channel visualizations.
func ConvNet[B tensor.Backend](backend B) *nn.Sequential[B] {
	return nn.NewSequential[B]().
		Add("conv1", nn.NewConv2D(3, 16, 3, 3, 1, 1, true, backend)).
		Add("relu1", nn.NewReLU[B]()).
		Add("pool1", nn.NewMaxPool2D(2, 2, backend)).
		Add("conv2", nn.NewConv2D(16, 32, 3, 3, 1, 1, true, backend)).
		Add("relu2", nn.NewReLU[B]()).
		Add("pool2", nn.NewMaxPool2D(2, 2, backend)).
		Add("conv3", nn.NewConv2D(32, 64, 3, 3, 1, 1, true, backend)).
		Add("relu3", nn.NewReLU[B]()).
		Add("gap", nn.NewGlobalAvgPool2D[B]()).
		Add("fc", nn.NewLinear(64, 10, backend))
}
