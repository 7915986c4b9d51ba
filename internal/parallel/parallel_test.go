package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	cfg := DefaultConfig()
	n := 1000

	visits := make([]int32, n)
	For(n, func(i int) {
		atomic.AddInt32(&visits[i], 1)
	}, cfg)

	for i, v := range visits {
		if v != 1 {
			t.Errorf("index %d visited %d times, want 1", i, v)
		}
	}
}

func TestFor_Disabled(t *testing.T) {
	cfg := Config{Enabled: false}

	// Sequential execution preserves iteration order.
	var order []int
	For(10, func(i int) {
		order = append(order, i)
	}, cfg)

	if len(order) != 10 {
		t.Fatalf("got %d iterations, want 10", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Errorf("iteration %d ran index %d, want %d", i, v, i)
		}
	}
}

func TestFor_BelowMinChunkRunsInline(t *testing.T) {
	cfg := DefaultConfig()
	n := cfg.MinChunkSize - 1

	// No atomics needed when the loop stays on the caller.
	counter := 0
	For(n, func(_ int) {
		counter++
	}, cfg)

	if counter != n {
		t.Errorf("counter = %d, want %d", counter, n)
	}
}

func TestFor_Empty(t *testing.T) {
	var counter int64
	For(0, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, DefaultConfig())

	if counter != 0 {
		t.Errorf("counter = %d, want 0", counter)
	}
}

func TestForBatch_CoversGrid(t *testing.T) {
	cfg := DefaultConfig()
	batch, channels := 4, 8

	var visits [4][8]int32
	ForBatch(batch, channels, func(b, c int) {
		atomic.AddInt32(&visits[b][c], 1)
	}, cfg)

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			if visits[b][c] != 1 {
				t.Errorf("(%d, %d) visited %d times, want 1", b, c, visits[b][c])
			}
		}
	}
}

func BenchmarkFor(b *testing.B) {
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		cfg := DefaultConfig()
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfg := Config{Enabled: false}
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})
}
