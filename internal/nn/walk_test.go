package nn

import (
	"testing"

	"github.com/born-ml/lumen/internal/autodiff"
	"github.com/born-ml/lumen/internal/backend/cpu"
	"github.com/stretchr/testify/assert"
)

// TestWalk_VisitsNestedChildren verifies parents come before their
// children and paths join with the separator.
func TestWalk_VisitsNestedChildren(t *testing.T) {
	backend := autodiff.New(cpu.New())

	block := NewSequential[Backend]().
		Add("fc", NewLinear(2, 2, backend)).
		Add("act", NewReLU[Backend]())

	model := NewSequential[Backend]().
		Add("block1", block).
		Add("fc2", NewLinear(2, 1, backend))

	var paths []string
	Walk[Backend](model, func(path string, _ Module[Backend]) {
		paths = append(paths, path)
	})

	assert.Equal(t, []string{
		"block1",
		"block1->fc",
		"block1->act",
		"fc2",
	}, paths)
}

// TestWalk_LeafModule verifies walking a non-container visits nothing.
func TestWalk_LeafModule(t *testing.T) {
	backend := autodiff.New(cpu.New())

	visited := 0
	Walk[Backend](NewLinear(2, 2, backend), func(string, Module[Backend]) {
		visited++
	})
	assert.Zero(t, visited)
}
