package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := store.Record(ctx, Run{
		Model:      "inception",
		Objective:  "channel(mixed4a:7)",
		Steps:      512,
		FinalLoss:  -3.25,
		OutputPath: "out/mixed4a_7.png",
		StartedAt:  started,
		Duration:   90 * time.Second,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = store.Record(ctx, Run{
		Model:     "convnet",
		Objective: "channel(conv2:0)",
		Steps:     128,
		StartedAt: started.Add(time.Hour),
		Duration:  5 * time.Second,
	})
	require.NoError(t, err)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Most recent first.
	assert.Equal(t, "convnet", runs[0].Model)
	assert.Equal(t, "inception", runs[1].Model)
	assert.Equal(t, id, runs[1].ID)
	assert.Equal(t, 512, runs[1].Steps)
	assert.InDelta(t, -3.25, runs[1].FinalLoss, 1e-9)
	assert.Equal(t, "out/mixed4a_7.png", runs[1].OutputPath)
	assert.True(t, runs[1].StartedAt.Equal(started))
	assert.Equal(t, 90*time.Second, runs[1].Duration)
}

func TestStore_RecordOverwritesExistingID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, Run{Model: "convnet", Objective: "layer(conv1)", StartedAt: time.Now()})
	require.NoError(t, err)

	_, err = store.Record(ctx, Run{ID: id, Model: "convnet", Objective: "layer(conv1)", Steps: 99, StartedAt: time.Now()})
	require.NoError(t, err)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 99, runs[0].Steps)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	first := New(path)
	require.NoError(t, first.Init(ctx))
	_, err := first.Record(ctx, Run{Model: "convnet", Objective: "layer(fc)", StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := New(path)
	require.NoError(t, second.Init(ctx))
	defer second.Close()

	runs, err := second.List(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_RequiresInit(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "runs.db"))

	_, err := store.Record(context.Background(), Run{})
	assert.ErrorContains(t, err, "not initialized")

	_, err = store.List(context.Background())
	assert.ErrorContains(t, err, "not initialized")
}

func TestStore_InitRequiresPath(t *testing.T) {
	store := New("")
	assert.ErrorContains(t, store.Init(context.Background()), "path is required")
}

func TestStore_InitTwiceIsNoOp(t *testing.T) {
	store := openStore(t)
	assert.NoError(t, store.Init(context.Background()))
}
