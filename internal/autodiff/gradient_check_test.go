package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/born-ml/lumen/internal/tensor"
)

// numericalGradient estimates df/dx at one input element with a central
// difference. forward must evaluate the whole graph from scratch on a
// plain backend so perturbations cannot leak between calls.
func numericalGradient(forward func(data []float32) float32, data []float32, index int) float32 {
	const epsilon = 1e-2

	perturbed := make([]float32, len(data))

	copy(perturbed, data)
	perturbed[index] += epsilon
	plus := forward(perturbed)

	copy(perturbed, data)
	perturbed[index] -= epsilon
	minus := forward(perturbed)

	return (plus - minus) / (2 * epsilon)
}

func checkGradient(t *testing.T, name string, analytical, numerical float32) {
	t.Helper()
	diff := math.Abs(float64(analytical - numerical))
	scale := math.Max(math.Abs(float64(numerical)), 1.0)
	if diff/scale > 5e-2 {
		t.Errorf("%s: analytical %v vs numerical %v", name, analytical, numerical)
	}
}

func rawFrom(data []float32, shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32, device)
	if err != nil {
		panic(err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestGradientCheck_MulDiv(t *testing.T) {
	aData := []float32{1.5, -2.0, 3.0}
	bData := []float32{0.5, 2.0, -1.5}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	a, _ := tensor.FromSlice(aData, tensor.Shape{3}, backend)
	b, _ := tensor.FromSlice(bData, tensor.Shape{3}, backend)
	y := tensor.New[float32](backend.Sum(backend.Div(backend.Mul(a.Raw(), a.Raw()), b.Raw())), backend)

	grads := autodiff.Backward(y, backend)
	gradA := grads[a.Raw()].AsFloat32()
	gradB := grads[b.Raw()].AsFloat32()

	plain := cpu.New()
	for i := range aData {
		numerical := numericalGradient(func(data []float32) float32 {
			av := rawFrom(data, tensor.Shape{3}, plain.Device())
			bv := rawFrom(bData, tensor.Shape{3}, plain.Device())
			return plain.Sum(plain.Div(plain.Mul(av, av), bv)).AsFloat32()[0]
		}, aData, i)
		checkGradient(t, "a", gradA[i], numerical)
	}
	for i := range bData {
		numerical := numericalGradient(func(data []float32) float32 {
			av := rawFrom(aData, tensor.Shape{3}, plain.Device())
			bv := rawFrom(data, tensor.Shape{3}, plain.Device())
			return plain.Sum(plain.Div(plain.Mul(av, av), bv)).AsFloat32()[0]
		}, bData, i)
		checkGradient(t, "b", gradB[i], numerical)
	}
}

func TestGradientCheck_Activations(t *testing.T) {
	// Stay away from the ReLU kink at zero so the finite difference is
	// well defined.
	data := []float32{-1.5, -0.4, 0.3, 1.2}

	cases := []struct {
		name    string
		tape    func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor
		forward func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor
	}{
		{
			name: "Sigmoid",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.Sigmoid(x)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return sigmoidPlain(x)
			},
		},
		{
			name: "Tanh",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.Tanh(x)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return tanhPlain(x)
			},
		},
		{
			name: "ReLU",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.ReLU(x)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return reluPlain(x)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			backend.Tape().StartRecording()

			x, _ := tensor.FromSlice(data, tensor.Shape{4}, backend)
			y := tensor.New[float32](backend.Sum(tc.tape(backend, x.Raw())), backend)

			grads := autodiff.Backward(y, backend)
			grad := grads[x.Raw()].AsFloat32()

			plain := cpu.New()
			for i := range data {
				numerical := numericalGradient(func(values []float32) float32 {
					xv := rawFrom(values, tensor.Shape{4}, plain.Device())
					return plain.Sum(tc.forward(plain, xv)).AsFloat32()[0]
				}, data, i)
				checkGradient(t, tc.name, grad[i], numerical)
			}
		})
	}
}

func sigmoidPlain(x *tensor.RawTensor) *tensor.RawTensor {
	out, _ := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	src, dst := x.AsFloat32(), out.AsFloat32()
	for i, v := range src {
		dst[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
	return out
}

func tanhPlain(x *tensor.RawTensor) *tensor.RawTensor {
	out, _ := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	src, dst := x.AsFloat32(), out.AsFloat32()
	for i, v := range src {
		dst[i] = float32(math.Tanh(float64(v)))
	}
	return out
}

func reluPlain(x *tensor.RawTensor) *tensor.RawTensor {
	out, _ := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	src, dst := x.AsFloat32(), out.AsFloat32()
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
	return out
}

func TestGradientCheck_Conv2DKernel(t *testing.T) {
	inputData := []float32{
		0.5, -1.0, 2.0,
		1.5, 0.0, -0.5,
		-2.0, 1.0, 0.5,
	}
	kernelData := []float32{0.3, -0.7, 1.1, 0.2}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	input, _ := tensor.FromSlice(inputData, tensor.Shape{1, 1, 3, 3}, backend)
	kernel, _ := tensor.FromSlice(kernelData, tensor.Shape{1, 1, 2, 2}, backend)
	y := tensor.New[float32](backend.Sum(backend.Conv2D(input.Raw(), kernel.Raw(), 1, 1)), backend)

	grads := autodiff.Backward(y, backend)
	gradKernel := grads[kernel.Raw()].AsFloat32()
	gradInput := grads[input.Raw()].AsFloat32()

	plain := cpu.New()
	for i := range kernelData {
		numerical := numericalGradient(func(data []float32) float32 {
			in := rawFrom(inputData, tensor.Shape{1, 1, 3, 3}, plain.Device())
			k := rawFrom(data, tensor.Shape{1, 1, 2, 2}, plain.Device())
			return plain.Sum(plain.Conv2D(in, k, 1, 1)).AsFloat32()[0]
		}, kernelData, i)
		checkGradient(t, "kernel", gradKernel[i], numerical)
	}
	for i := range inputData {
		numerical := numericalGradient(func(data []float32) float32 {
			in := rawFrom(data, tensor.Shape{1, 1, 3, 3}, plain.Device())
			k := rawFrom(kernelData, tensor.Shape{1, 1, 2, 2}, plain.Device())
			return plain.Sum(plain.Conv2D(in, k, 1, 1)).AsFloat32()[0]
		}, inputData, i)
		checkGradient(t, "input", gradInput[i], numerical)
	}
}

func TestGradientCheck_Pooling(t *testing.T) {
	// Distinct values keep the max unique, so the subgradient choice
	// cannot disagree with the finite difference.
	data := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	shape := tensor.Shape{1, 1, 4, 4}

	t.Run("MaxPool2D", func(t *testing.T) {
		backend := autodiff.New(cpu.New())
		backend.Tape().StartRecording()

		x, _ := tensor.FromSlice(data, shape, backend)
		y := tensor.New[float32](backend.Sum(backend.MaxPool2D(x.Raw(), 2, 2)), backend)

		grads := autodiff.Backward(y, backend)
		grad := grads[x.Raw()].AsFloat32()

		plain := cpu.New()
		for i := range data {
			numerical := numericalGradient(func(values []float32) float32 {
				xv := rawFrom(values, shape, plain.Device())
				return plain.Sum(plain.MaxPool2D(xv, 2, 2)).AsFloat32()[0]
			}, data, i)
			checkGradient(t, "maxpool", grad[i], numerical)
		}
	})

	t.Run("AvgPool2D", func(t *testing.T) {
		backend := autodiff.New(cpu.New())
		backend.Tape().StartRecording()

		x, _ := tensor.FromSlice(data, shape, backend)
		y := tensor.New[float32](backend.Sum(backend.AvgPool2D(x.Raw(), 2, 2)), backend)

		grads := autodiff.Backward(y, backend)
		grad := grads[x.Raw()].AsFloat32()

		plain := cpu.New()
		for i := range data {
			numerical := numericalGradient(func(values []float32) float32 {
				xv := rawFrom(values, shape, plain.Device())
				return plain.Sum(plain.AvgPool2D(xv, 2, 2)).AsFloat32()[0]
			}, data, i)
			checkGradient(t, "avgpool", grad[i], numerical)
		}
	})
}

func TestGradientCheck_SpatialOps(t *testing.T) {
	data := []float32{
		0.1, -0.9, 1.3,
		2.0, 0.4, -1.1,
		-0.3, 0.8, 1.7,
	}
	shape := tensor.Shape{1, 1, 3, 3}

	cases := []struct {
		name    string
		tape    func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor
		forward func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor
	}{
		{
			name: "PadConstant",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.Pad2D(x, 1, 1, 1, 1, tensor.PadConstant)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return plain.Pad2D(x, 1, 1, 1, 1, tensor.PadConstant)
			},
		},
		{
			name: "PadReflect",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.Pad2D(x, 1, 1, 1, 1, tensor.PadReflect)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return plain.Pad2D(x, 1, 1, 1, 1, tensor.PadReflect)
			},
		},
		{
			name: "Upsample",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.Upsample2D(x, 5, 5)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return plain.Upsample2D(x, 5, 5)
			},
		},
		{
			name: "Narrow",
			tape: func(backend *autodiff.AutodiffBackend[*cpu.CPUBackend], x *tensor.RawTensor) *tensor.RawTensor {
				return backend.Narrow(x, 2, 1, 2)
			},
			forward: func(plain *cpu.CPUBackend, x *tensor.RawTensor) *tensor.RawTensor {
				return plain.Narrow(x, 2, 1, 2)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			backend.Tape().StartRecording()

			x, _ := tensor.FromSlice(data, shape, backend)
			y := tensor.New[float32](backend.Sum(tc.tape(backend, x.Raw())), backend)

			grads := autodiff.Backward(y, backend)
			grad := grads[x.Raw()].AsFloat32()

			plain := cpu.New()
			for i := range data {
				numerical := numericalGradient(func(values []float32) float32 {
					xv := rawFrom(values, shape, plain.Device())
					return plain.Sum(tc.forward(plain, xv)).AsFloat32()[0]
				}, data, i)
				checkGradient(t, tc.name, grad[i], numerical)
			}
		})
	}
}

func TestGradientCheck_Reductions(t *testing.T) {
	data := []float32{0.2, -1.4, 0.9, 2.1, -0.6, 1.3}
	shape := tensor.Shape{2, 3}

	// Weight the reduced result so each output position contributes a
	// different amount to the scalar loss.
	weightData := []float32{1.0, -2.0}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice(data, shape, backend)
	w, _ := tensor.FromSlice(weightData, tensor.Shape{2}, backend)
	reduced := backend.MeanDim(x.Raw(), 1, false)
	y := tensor.New[float32](backend.Sum(backend.Mul(reduced, w.Raw())), backend)

	grads := autodiff.Backward(y, backend)
	grad := grads[x.Raw()].AsFloat32()

	plain := cpu.New()
	for i := range data {
		numerical := numericalGradient(func(values []float32) float32 {
			xv := rawFrom(values, shape, plain.Device())
			wv := rawFrom(weightData, tensor.Shape{2}, plain.Device())
			return plain.Sum(plain.Mul(plain.MeanDim(xv, 1, false), wv)).AsFloat32()[0]
		}, data, i)
		checkGradient(t, "meandim", grad[i], numerical)
	}
}

func TestGradientCheck_CrossEntropy(t *testing.T) {
	logitsData := []float32{1.2, -0.5, 0.3, -1.0, 2.0, 0.1}
	targets := []int32{2, 0}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	logits, _ := tensor.FromSlice(logitsData, tensor.Shape{2, 3}, backend)
	targetsRaw, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
	copy(targetsRaw.AsInt32(), targets)

	loss := tensor.New[float32](backend.CrossEntropy(logits.Raw(), targetsRaw), backend)
	grads := autodiff.Backward(loss, backend)
	grad := grads[logits.Raw()].AsFloat32()

	plain := autodiff.New(cpu.New())
	for i := range logitsData {
		numerical := numericalGradient(func(data []float32) float32 {
			lv := rawFrom(data, tensor.Shape{2, 3}, tensor.CPU)
			tv, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
			copy(tv.AsInt32(), targets)
			return plain.CrossEntropy(lv, tv).AsFloat32()[0]
		}, logitsData, i)
		checkGradient(t, "cross-entropy", grad[i], numerical)
	}
}
