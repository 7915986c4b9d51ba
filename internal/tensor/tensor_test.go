package tensor

import (
	"fmt"
	"math"
	"testing"
)

// Test helpers

func assertEqualFloat32(t *testing.T, expected, actual float32, msg string) {
	t.Helper()
	if math.Abs(float64(expected-actual)) > 1e-6 {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

func assertEqualShape(t *testing.T, expected, actual Shape, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected shape %v, got %v", msg, expected, actual)
	}
}

// DType Tests

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Uint8, 1},
		{Bool, 1},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		dtype DataType
		str   string
	}{
		{Float32, "float32"},
		{Float64, "float64"},
		{Int32, "int32"},
		{Uint8, "uint8"},
		{Bool, "bool"},
	}

	for _, tt := range tests {
		if got := tt.dtype.String(); got != tt.str {
			t.Errorf("DataType.String() = %q, want %q", got, tt.str)
		}
	}
}

func TestInferDataType(t *testing.T) {
	if got := inferDataType(float32(0)); got != Float32 {
		t.Errorf("inferDataType(float32) = %s, want float32", got)
	}
	if got := inferDataType(float64(0)); got != Float64 {
		t.Errorf("inferDataType(float64) = %s, want float64", got)
	}
	if got := inferDataType(int32(0)); got != Int32 {
		t.Errorf("inferDataType(int32) = %s, want int32", got)
	}
	if got := inferDataType(uint8(0)); got != Uint8 {
		t.Errorf("inferDataType(uint8) = %s, want uint8", got)
	}
	if got := inferDataType(false); got != Bool {
		t.Errorf("inferDataType(bool) = %s, want bool", got)
	}
}

// Shape Tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1}, // scalar
		{Shape{5}, 5},
		{Shape{3, 4}, 12},
		{Shape{1, 3, 128, 128}, 49152},
	}

	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("Shape%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("Validate(Shape{2, 3}) = %v, want nil", err)
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("Validate(Shape{2, 0}) should fail")
	}
	if err := (Shape{-1, 3}).Validate(); err == nil {
		t.Error("Validate(Shape{-1, 3}) should fail")
	}
}

func TestShapeEqual(t *testing.T) {
	if !(Shape{2, 3}).Equal(Shape{2, 3}) {
		t.Error("Shape{2, 3} should equal Shape{2, 3}")
	}
	if (Shape{2, 3}).Equal(Shape{3, 2}) {
		t.Error("Shape{2, 3} should not equal Shape{3, 2}")
	}
	if (Shape{2, 3}).Equal(Shape{2, 3, 1}) {
		t.Error("shapes of different rank should not be equal")
	}
}

func TestShapeClone(t *testing.T) {
	original := Shape{2, 3, 4}
	clone := original.Clone()

	clone[0] = 99
	if original[0] != 2 {
		t.Error("modifying clone should not affect original")
	}
}

func TestShapeComputeStrides(t *testing.T) {
	tests := []struct {
		shape Shape
		want  []int
	}{
		{Shape{5}, []int{1}},
		{Shape{3, 4}, []int{4, 1}},
		{Shape{2, 3, 4}, []int{12, 4, 1}},
	}

	for _, tt := range tests {
		got := tt.shape.ComputeStrides()
		if len(got) != len(tt.want) {
			t.Errorf("Shape%v.ComputeStrides() = %v, want %v", tt.shape, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Shape%v.ComputeStrides() = %v, want %v", tt.shape, got, tt.want)
				break
			}
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		want      Shape
		broadcast bool
	}{
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{1, 3, 1, 1}, Shape{2, 3, 8, 8}, Shape{2, 3, 8, 8}, true},
		{Shape{4, 1}, Shape{3}, Shape{4, 3}, true},
		{Shape{1}, Shape{2, 3}, Shape{2, 3}, true},
	}

	for _, tt := range tests {
		got, broadcast, err := BroadcastShapes(tt.a, tt.b)
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v) failed: %v", tt.a, tt.b, err)
			continue
		}
		assertEqualShape(t, tt.want, got, fmt.Sprintf("BroadcastShapes(%v, %v)", tt.a, tt.b))
		if broadcast != tt.broadcast {
			t.Errorf("BroadcastShapes(%v, %v) broadcast = %v, want %v", tt.a, tt.b, broadcast, tt.broadcast)
		}
	}
}

func TestBroadcastShapesIncompatible(t *testing.T) {
	if _, _, err := BroadcastShapes(Shape{3, 4}, Shape{3, 5}); err == nil {
		t.Error("BroadcastShapes(Shape{3, 4}, Shape{3, 5}) should fail")
	}
}

// Tensor Tests

func TestFromSlice(t *testing.T) {
	backend := NewMockBackend()
	data := []float32{1, 2, 3, 4, 5, 6}

	tr, err := FromSlice(data, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	assertEqualShape(t, Shape{2, 3}, tr.Shape(), "FromSlice shape")
	if tr.DType() != Float32 {
		t.Errorf("DType() = %s, want float32", tr.DType())
	}
	for i, want := range data {
		assertEqualFloat32(t, want, tr.Data()[i], fmt.Sprintf("Data()[%d]", i))
	}

	// The slice is copied, not shared
	data[0] = 99
	assertEqualFloat32(t, 1, tr.Data()[0], "FromSlice should copy the input")
}

func TestFromSliceLengthMismatch(t *testing.T) {
	backend := NewMockBackend()
	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, backend); err == nil {
		t.Error("FromSlice with 3 elements and shape [2, 2] should fail")
	}
}

func TestTensorMetadata(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2, 3, 4}, backend)

	if tr.NumElements() != 24 {
		t.Errorf("NumElements() = %d, want 24", tr.NumElements())
	}
	if tr.Device() != CPU {
		t.Errorf("Device() = %s, want CPU", tr.Device())
	}
	if tr.Backend() != backend {
		t.Error("Backend() should return the construction backend")
	}
	if tr.Raw() == nil {
		t.Error("Raw() should not be nil")
	}
}

func TestTensorItem(t *testing.T) {
	backend := NewMockBackend()

	tr, err := FromSlice([]float32{42}, Shape{1}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	assertEqualFloat32(t, 42, tr.Item(), "Item()")
}

func TestTensorItemMultiElementPanics(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2, 2}, backend)

	defer func() {
		if recover() == nil {
			t.Error("Item() on a multi-element tensor should panic")
		}
	}()
	tr.Item()
}

func TestTensorAtSet(t *testing.T) {
	backend := NewMockBackend()
	tr, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	assertEqualFloat32(t, 6, tr.At(1, 2), "At(1, 2)")

	tr.Set(99, 0, 1)
	assertEqualFloat32(t, 99, tr.At(0, 1), "At(0, 1) after Set")
}

func TestTensorAtOutOfBoundsPanics(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2, 3}, backend)

	defer func() {
		if recover() == nil {
			t.Error("At(2, 0) should panic for shape [2, 3]")
		}
	}()
	tr.At(2, 0)
}

func TestTensorDataZeroCopy(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{4}, backend)

	tr.Data()[2] = 7
	assertEqualFloat32(t, 7, tr.At(2), "Data() should view the underlying memory")
}

func TestTensorString(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2, 3}, backend)

	want := "Tensor[float32][2 3] on CPU"
	if got := tr.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTensorDetach(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2, 2}, backend).RequireGrad()
	tr.SetGrad(Ones[float32](Shape{2, 2}, backend))

	detached := tr.Detach()

	if detached.RequiresGrad() {
		t.Error("Detach() should clear gradient tracking")
	}
	if detached.Grad() != nil {
		t.Error("Detach() should not carry the gradient")
	}
	if detached.Raw() != tr.Raw() {
		t.Error("Detach() should share the underlying data")
	}
}

func TestTensorClone(t *testing.T) {
	backend := NewMockBackend()
	tr, err := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	clone := tr.Clone()

	assertEqualShape(t, tr.Shape(), clone.Shape(), "Clone shape")
	if clone.Raw() == tr.Raw() {
		t.Error("Clone() should produce a distinct RawTensor")
	}
	assertEqualFloat32(t, 3, clone.At(1, 0), "Clone data")
}

func TestTensorRequireGrad(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2}, backend)

	if tr.RequiresGrad() {
		t.Error("new tensors should not require gradients")
	}

	got := tr.RequireGrad()
	if got != tr {
		t.Error("RequireGrad() should return the receiver for chaining")
	}
	if !tr.RequiresGrad() {
		t.Error("RequiresGrad() should be true after RequireGrad()")
	}
}

func TestTensorGrad(t *testing.T) {
	backend := NewMockBackend()
	tr := Zeros[float32](Shape{2, 2}, backend)

	if tr.Grad() != nil {
		t.Error("Grad() should be nil before autodiff runs")
	}

	grad := Ones[float32](Shape{2, 2}, backend)
	tr.SetGrad(grad)
	if tr.Grad() != grad {
		t.Error("Grad() should return the tensor passed to SetGrad")
	}

	tr.SetGrad(nil)
	if tr.Grad() != nil {
		t.Error("SetGrad(nil) should clear the gradient")
	}
}
