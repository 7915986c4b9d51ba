package tensor

// Extended method wrappers: scalar arithmetic, softmax, and reductions.
// Each delegates to the backend so that operations performed through an
// AutodiffBackend are recorded on the gradient tape.

// MulScalar multiplies every element by a scalar.
//
// Example:
//
//	t := tensor.Ones[float32](Shape{2, 2}, backend)
//	scaled := t.MulScalar(255.0)
func (t *Tensor[T, B]) MulScalar(scalar T) *Tensor[T, B] {
	result := t.backend.MulScalar(t.raw, scalar)
	return New[T, B](result, t.backend)
}

// AddScalar adds a scalar to every element.
func (t *Tensor[T, B]) AddScalar(scalar T) *Tensor[T, B] {
	result := t.backend.AddScalar(t.raw, scalar)
	return New[T, B](result, t.backend)
}

// SubScalar subtracts a scalar from every element.
func (t *Tensor[T, B]) SubScalar(scalar T) *Tensor[T, B] {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		s := any(scalar).(float32)
		return New[T, B](t.backend.AddScalar(t.raw, -s), t.backend)
	case float64:
		s := any(scalar).(float64)
		return New[T, B](t.backend.AddScalar(t.raw, -s), t.backend)
	default:
		panic("SubScalar only supports float types")
	}
}

// Softmax applies softmax along the given dimension.
//
// Example:
//
//	logits := tensor.Randn[float32](Shape{2, 10}, backend)
//	probs := logits.Softmax(1) // Rows sum to 1
func (t *Tensor[T, B]) Softmax(dim int) *Tensor[T, B] {
	result := t.backend.Softmax(t.raw, dim)
	return New[T, B](result, t.backend)
}

// Sum computes the total sum of all elements. Result has shape [1].
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	result := t.backend.Sum(t.raw)
	return New[T, B](result, t.backend)
}

// SumDim sums along the given dimension.
// If keepDim is true, the reduced dimension is kept with size 1.
func (t *Tensor[T, B]) SumDim(dim int, keepDim bool) *Tensor[T, B] {
	result := t.backend.SumDim(t.raw, dim, keepDim)
	return New[T, B](result, t.backend)
}

// Mean computes the mean of all elements. Result has shape [1].
//
// Objectives reduce captured activations to a scalar with Mean; the result
// stays on the gradient tape so the render loop can back-propagate through it.
func (t *Tensor[T, B]) Mean() *Tensor[T, B] {
	result := t.backend.Mean(t.raw)
	return New[T, B](result, t.backend)
}

// MeanDim computes the mean along the given dimension.
// If keepDim is true, the reduced dimension is kept with size 1.
func (t *Tensor[T, B]) MeanDim(dim int, keepDim bool) *Tensor[T, B] {
	result := t.backend.MeanDim(t.raw, dim, keepDim)
	return New[T, B](result, t.backend)
}

// Argmax returns the index of the maximum value along the given dimension.
// The result is an int32 tensor with that dimension removed.
//
// Example:
//
//	logits := tensor.Randn[float32](Shape{4, 10}, backend)
//	pred := logits.Argmax(1) // Shape: [4]
func (t *Tensor[T, B]) Argmax(dim int) *Tensor[int32, B] {
	result := t.backend.Argmax(t.raw, dim)
	return New[int32, B](result, t.backend)
}
