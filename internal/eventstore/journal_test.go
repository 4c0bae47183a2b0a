package eventstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRunID = "run-1"

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAppendAndRetrieve(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	seq, err := store.Append(ctx, Entry{RunID: testRunID, Type: "custom", Payload: []byte(`{"test":"data"}`)})
	require.NoError(t, err)
	assert.Positive(t, seq)
	_, err = store.Append(ctx, Entry{RunID: "other", Type: "custom"})
	require.NoError(t, err)

	entries, err := store.Run(ctx, testRunID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, seq, e.Seq)
	assert.Equal(t, testRunID, e.RunID)
	assert.Equal(t, "custom", e.Type)
	assert.JSONEq(t, `{"test":"data"}`, string(e.Payload))
	assert.WithinDuration(t, time.Now(), e.At, time.Minute)

	var payload map[string]string
	require.NoError(t, e.Decode(&payload))
	assert.Equal(t, "data", payload["test"])

	entries, err = store.Run(ctx, "other")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "{}", string(entries[0].Payload))
}

func TestStoreBetween(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	_, err := store.Append(ctx, Entry{RunID: testRunID, Type: "a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, Entry{RunID: testRunID, Type: "b"})
	require.NoError(t, err)

	now := time.Now()
	entries, err := store.Between(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.Between(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreRecentRuns(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	for _, id := range []string{"r1", "r2", "r1", "r3"} {
		_, err := store.Append(ctx, Entry{RunID: id, Type: "x"})
		require.NoError(t, err)
	}

	ids, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids)
}

func TestEntryDecodeError(t *testing.T) {
	var v struct{}
	err := Entry{Type: "run.started", Payload: []byte("not json")}.Decode(&v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEventQueryFailed)
}

func TestJournalSummarize(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	j := NewJournal(store)

	require.NoError(t, j.RunStarted(ctx, testRunID, RunStarted{Target: "production", WorkPath: "/work", Builds: 3}))
	require.NoError(t, j.BuildFinished(ctx, testRunID, BuildOutcome{Src: "index.html", Use: "@vercel/static"}))
	require.NoError(t, j.BuildFinished(ctx, testRunID, BuildOutcome{Src: "api/a.js", Use: "@vercel/node"}))
	require.NoError(t, j.BuildFinished(ctx, testRunID, BuildOutcome{Src: "api/b.py", Use: "@vercel/python", Code: "BUILDER_FAILED", Message: "boom"}))
	require.NoError(t, j.RunFinished(ctx, testRunID, RunFinished{Outcome: "failed", Routes: 5, Code: "BUILDER_FAILED"}))

	entries, err := store.Run(ctx, testRunID)
	require.NoError(t, err)
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{TypeRunStarted, TypeBuildSucceeded, TypeBuildSucceeded, TypeBuildFailed, TypeRunFinished}, types)

	s, err := Summarize(ctx, store, testRunID)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "production", s.Target)
	assert.Equal(t, 2, s.Succeeded)
	require.Len(t, s.Failed, 1)
	assert.Equal(t, "api/b.py", s.Failed[0].Src)
	assert.Equal(t, "failed", s.Outcome)
	assert.Equal(t, 5, s.Routes)
	assert.Equal(t, "BUILDER_FAILED", s.ErrorCode)
	require.NotNil(t, s.FinishedAt)
	assert.Equal(t, 5, s.EventsCount)
}

func TestSummarizeUnknownRun(t *testing.T) {
	s, err := Summarize(t.Context(), newMemoryStore(t), "missing")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestStoreErrorsAreClassified(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Append(t.Context(), Entry{RunID: testRunID, Type: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEventAppendFailed))
	assert.False(t, errors.Is(err, ErrEventQueryFailed))
}
