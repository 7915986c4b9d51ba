// Package parallel provides the loop-splitting helpers the CPU backend
// builds its kernels on.
//
// Convolution, pooling, and the element-wise kernels all reduce to
// "run f(i) for i in [0, n)" with independent iterations. For splits
// that range across goroutines when the work is large enough to pay
// for the scheduling, and runs it inline otherwise.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how loops are split across goroutines.
type Config struct {
	Enabled      bool // run loops concurrently when profitable
	NumWorkers   int  // upper bound on goroutines per loop
	MinChunkSize int  // below this many iterations, stay sequential
}

// DefaultConfig sizes the worker pool to the machine. Single-CPU
// machines get sequential execution.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For executes f(i) for every i in [0, n). Iterations must be
// independent: they may run on different goroutines in any order.
// Small loops and disabled configs run inline on the caller.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := (n + cfg.NumWorkers - 1) / cfg.NumWorkers
	if chunk < cfg.MinChunkSize {
		chunk = cfg.MinChunkSize
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch runs f over the (batch, channel) grid, the iteration shape
// of the NCHW kernels. The flattened index keeps one batch item's
// channels close together so chunks stay cache friendly.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	For(batch*channels, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}
