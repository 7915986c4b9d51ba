package tensor

import (
	"fmt"
	"testing"
)

// Element-wise Tests

func TestTensorAdd(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	b, _ := FromSlice([]float32{10, 20, 30, 40}, Shape{2, 2}, backend)

	c := a.Add(b)

	expected := []float32{11, 22, 33, 44}
	for i, want := range expected {
		assertEqualFloat32(t, want, c.Data()[i], fmt.Sprintf("Add[%d]", i))
	}
}

func TestTensorAddBroadcast(t *testing.T) {
	backend := NewMockBackend()
	bias, _ := FromSlice([]float32{1, 2, 3}, Shape{1, 3, 1, 1}, backend)
	img := Ones[float32](Shape{2, 3, 2, 2}, backend)

	c := img.Add(bias)

	assertEqualShape(t, Shape{2, 3, 2, 2}, c.Shape(), "broadcast Add shape")
	// Channel c of every batch item should be 1 + bias[c].
	for n := 0; n < 2; n++ {
		for ch := 0; ch < 3; ch++ {
			assertEqualFloat32(t, float32(ch+2), c.At(n, ch, 0, 0), fmt.Sprintf("Add batch %d channel %d", n, ch))
		}
	}
}

func TestTensorSub(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{10, 20, 30, 40}, Shape{2, 2}, backend)
	b, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	c := a.Sub(b)

	expected := []float32{9, 18, 27, 36}
	for i, want := range expected {
		assertEqualFloat32(t, want, c.Data()[i], fmt.Sprintf("Sub[%d]", i))
	}
}

func TestTensorMul(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	b, _ := FromSlice([]float32{2, 3, 4, 5}, Shape{2, 2}, backend)

	c := a.Mul(b)

	expected := []float32{2, 6, 12, 20}
	for i, want := range expected {
		assertEqualFloat32(t, want, c.Data()[i], fmt.Sprintf("Mul[%d]", i))
	}
}

func TestTensorDiv(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{10, 20, 30, 40}, Shape{2, 2}, backend)
	b, _ := FromSlice([]float32{2, 4, 5, 8}, Shape{2, 2}, backend)

	c := a.Div(b)

	expected := []float32{5, 5, 6, 5}
	for i, want := range expected {
		assertEqualFloat32(t, want, c.Data()[i], fmt.Sprintf("Div[%d]", i))
	}
}

// MatMul Tests

func TestTensorMatMul(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)
	b, _ := FromSlice([]float32{7, 8, 9, 10, 11, 12}, Shape{3, 2}, backend)

	c := a.MatMul(b)

	assertEqualShape(t, Shape{2, 2}, c.Shape(), "MatMul shape")
	expected := []float32{58, 64, 139, 154}
	for i, want := range expected {
		assertEqualFloat32(t, want, c.Data()[i], fmt.Sprintf("MatMul[%d]", i))
	}
}

// Shape operation Tests

func TestTensorReshape(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)

	b := a.Reshape(3, 2)

	assertEqualShape(t, Shape{3, 2}, b.Shape(), "Reshape shape")
	// Row-major order is preserved
	assertEqualFloat32(t, 3, b.At(1, 0), "Reshape At(1, 0)")
	assertEqualFloat32(t, 6, b.At(2, 1), "Reshape At(2, 1)")
}

func TestTensorTranspose2D(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)

	b := a.Transpose()

	assertEqualShape(t, Shape{3, 2}, b.Shape(), "Transpose shape")
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assertEqualFloat32(t, a.At(i, j), b.At(j, i), fmt.Sprintf("Transpose At(%d, %d)", j, i))
		}
	}
}

func TestTensorTransposeAxes(t *testing.T) {
	backend := NewMockBackend()
	a := Zeros[float32](Shape{2, 3, 4}, backend)
	a.Set(42, 1, 2, 3)

	b := a.Transpose(2, 0, 1)

	assertEqualShape(t, Shape{4, 2, 3}, b.Shape(), "Transpose axes shape")
	assertEqualFloat32(t, 42, b.At(3, 1, 2), "Transpose moved element")
}

func TestTensorT(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	b := a.T()

	assertEqualFloat32(t, 3, b.At(0, 1), "T At(0, 1)")
	assertEqualFloat32(t, 2, b.At(1, 0), "T At(1, 0)")
}

func TestTensorTNon2DPanics(t *testing.T) {
	backend := NewMockBackend()
	a := Zeros[float32](Shape{2, 2, 2}, backend)

	defer func() {
		if recover() == nil {
			t.Error("T() on a 3D tensor should panic")
		}
	}()
	a.T()
}

func TestTensorNarrow(t *testing.T) {
	backend := NewMockBackend()
	// Batch of 1, 4 channels, 2x2 spatial
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i)
	}
	a, _ := FromSlice(data, Shape{1, 4, 2, 2}, backend)

	ch := a.Narrow(1, 2, 1)

	assertEqualShape(t, Shape{1, 1, 2, 2}, ch.Shape(), "Narrow shape")
	// Channel 2 occupies elements 8..11
	for i := 0; i < 4; i++ {
		assertEqualFloat32(t, float32(8+i), ch.Data()[i], fmt.Sprintf("Narrow[%d]", i))
	}
}

func TestTensorNarrowMiddleDim(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)

	b := a.Narrow(1, 1, 2)

	assertEqualShape(t, Shape{2, 2}, b.Shape(), "Narrow shape")
	expected := []float32{2, 3, 5, 6}
	for i, want := range expected {
		assertEqualFloat32(t, want, b.Data()[i], fmt.Sprintf("Narrow[%d]", i))
	}
}

// Scalar Tests

func TestTensorMulScalar(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	b := a.MulScalar(2.5)

	expected := []float32{2.5, 5, 7.5, 10}
	for i, want := range expected {
		assertEqualFloat32(t, want, b.Data()[i], fmt.Sprintf("MulScalar[%d]", i))
	}
}

func TestTensorAddScalar(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	b := a.AddScalar(10)

	expected := []float32{11, 12, 13, 14}
	for i, want := range expected {
		assertEqualFloat32(t, want, b.Data()[i], fmt.Sprintf("AddScalar[%d]", i))
	}
}

func TestTensorSubScalar(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	b := a.SubScalar(1)

	expected := []float32{0, 1, 2, 3}
	for i, want := range expected {
		assertEqualFloat32(t, want, b.Data()[i], fmt.Sprintf("SubScalar[%d]", i))
	}
}

// Softmax Tests

func TestTensorSoftmax(t *testing.T) {
	backend := NewMockBackend()
	logits, _ := FromSlice([]float32{1, 2, 3, 1, 2, 3}, Shape{2, 3}, backend)

	probs := logits.Softmax(1)

	assertEqualShape(t, Shape{2, 3}, probs.Shape(), "Softmax shape")
	for row := 0; row < 2; row++ {
		var sum float32
		for col := 0; col < 3; col++ {
			v := probs.At(row, col)
			if v <= 0 || v >= 1 {
				t.Errorf("Softmax At(%d, %d) = %v, want value in (0, 1)", row, col, v)
			}
			sum += v
		}
		assertEqualFloat32(t, 1, sum, fmt.Sprintf("Softmax row %d sum", row))
	}

	// Larger logits get larger probabilities
	if probs.At(0, 2) <= probs.At(0, 0) {
		t.Error("Softmax should preserve ordering")
	}
}

// Reduction Tests

func TestTensorSum(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	s := a.Sum()

	assertEqualShape(t, Shape{1}, s.Shape(), "Sum shape")
	assertEqualFloat32(t, 10, s.Item(), "Sum value")
}

func TestTensorSumDim(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)

	rows := a.SumDim(1, false)
	assertEqualShape(t, Shape{2}, rows.Shape(), "SumDim shape")
	assertEqualFloat32(t, 6, rows.At(0), "SumDim row 0")
	assertEqualFloat32(t, 15, rows.At(1), "SumDim row 1")

	cols := a.SumDim(0, false)
	assertEqualShape(t, Shape{3}, cols.Shape(), "SumDim dim 0 shape")
	assertEqualFloat32(t, 5, cols.At(0), "SumDim col 0")
}

func TestTensorSumDimKeepDim(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)

	rows := a.SumDim(1, true)

	assertEqualShape(t, Shape{2, 1}, rows.Shape(), "SumDim keepDim shape")
	assertEqualFloat32(t, 6, rows.At(0, 0), "SumDim keepDim row 0")
}

func TestTensorMean(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	m := a.Mean()

	assertEqualShape(t, Shape{1}, m.Shape(), "Mean shape")
	assertEqualFloat32(t, 2.5, m.Item(), "Mean value")
}

func TestTensorMeanDim(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)

	rows := a.MeanDim(1, false)

	assertEqualShape(t, Shape{2}, rows.Shape(), "MeanDim shape")
	assertEqualFloat32(t, 2, rows.At(0), "MeanDim row 0")
	assertEqualFloat32(t, 5, rows.At(1), "MeanDim row 1")
}

func TestTensorArgmax(t *testing.T) {
	backend := NewMockBackend()
	logits, _ := FromSlice([]float32{
		0.1, 0.9, 0.2,
		0.8, 0.1, 0.3,
	}, Shape{2, 3}, backend)

	pred := logits.Argmax(1)

	assertEqualShape(t, Shape{2}, pred.Shape(), "Argmax shape")
	if pred.DType() != Int32 {
		t.Errorf("Argmax dtype = %s, want int32", pred.DType())
	}
	if pred.At(0) != 1 {
		t.Errorf("Argmax row 0 = %d, want 1", pred.At(0))
	}
	if pred.At(1) != 0 {
		t.Errorf("Argmax row 1 = %d, want 0", pred.At(1))
	}
}

func TestTensorArgmax1D(t *testing.T) {
	backend := NewMockBackend()
	a, _ := FromSlice([]float32{3, 1, 4, 1, 5}, Shape{5}, backend)

	pred := a.Argmax(0)

	assertEqualShape(t, Shape{1}, pred.Shape(), "Argmax 1D shape")
	if pred.Item() != 4 {
		t.Errorf("Argmax = %d, want 4", pred.Item())
	}
}
