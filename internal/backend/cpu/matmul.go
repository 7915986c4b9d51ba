package cpu

import (
	"fmt"

	"github.com/born-ml/lumen/internal/parallel"
	"github.com/born-ml/lumen/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Rows of the result are computed independently, so the outer loop is
// distributed across worker goroutines.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]

	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := newResult(tensor.Shape{m, n}, a.DType(), cpu.device, "matmul")

	switch a.DType() {
	case tensor.Float32:
		matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.par)
	case tensor.Float64:
		matmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.par)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulFloat32 computes C[i,j] = sum_k A[i,k] * B[k,j], one output row per
// work item. Each goroutine writes a disjoint row of C.
func matmulFloat32(c, a, b []float32, m, k, n int, par parallel.Config) {
	parallel.For(m, func(i int) {
		row := a[i*k : (i+1)*k]
		out := c[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			var sum float32
			for kk := 0; kk < k; kk++ {
				sum += row[kk] * b[kk*n+j]
			}
			out[j] = sum
		}
	}, par)
}

func matmulFloat64(c, a, b []float64, m, k, n int, par parallel.Config) {
	parallel.For(m, func(i int) {
		row := a[i*k : (i+1)*k]
		out := c[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			var sum float64
			for kk := 0; kk < k; kk++ {
				sum += row[kk] * b[kk*n+j]
			}
			out[j] = sum
		}
	}, par)
}
