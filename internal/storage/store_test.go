package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs", "quantlens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SaveRun(ctx, RunRecord{ID: "r1", Symbol: "SPY", Days: 90}))

	got, err := store.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, 90, got.Days)
	assert.NotEmpty(t, got.CreatedAt)

	require.NoError(t, store.SaveRun(ctx, RunRecord{
		ID:        "r1",
		Symbol:    "SPY",
		Days:      90,
		Status:    StatusCompleted,
		StatsJSON: `{"symbol":"SPY"}`,
		Report:    "body",
	}))
	got, err = store.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "body", got.Report)
	assert.Equal(t, `{"symbol":"SPY"}`, got.StatsJSON)
}

func TestGetRunMissing(t *testing.T) {
	store := openTestStore(t)
	got, err := store.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.GetRun(context.Background(), " ")
	assert.Error(t, err)
}

func TestSaveRunValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	assert.Error(t, store.SaveRun(ctx, RunRecord{Symbol: "SPY"}))
	assert.Error(t, store.SaveRun(ctx, RunRecord{ID: "r1"}))
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for _, run := range []RunRecord{
		{ID: "a", Symbol: "SPY", Days: 30, Status: StatusCompleted},
		{ID: "b", Symbol: "QQQ", Days: 30, Status: StatusFailed, Error: "boom"},
		{ID: "c", Symbol: "SPY", Days: 60, Status: StatusCompleted},
	} {
		require.NoError(t, store.SaveRun(ctx, run))
	}

	all, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	spy, err := store.ListRuns(ctx, "spy", 10)
	require.NoError(t, err)
	require.Len(t, spy, 2)
	assert.Equal(t, []string{"c", "a"}, []string{spy[0].ID, spy[1].ID})

	one, err := store.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
