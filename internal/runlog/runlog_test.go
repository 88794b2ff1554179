package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/reconcile"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:   testTime,
		UserID:      "u1",
		Operation:   "bulletproof-sync",
		AccountID:   "checking",
		WindowStart: "2025-01-01",
		WindowEnd:   "2025-01-31",
		Deleted:     40,
		Created:     42,
		Restored:    7,
		Skipped:     1,
		Message:     "Replaced 40 transactions with 42, 7 annotations restored",
	}
}

func TestAppend_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].UserID)
}

func TestAppend_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Operation = "cleanup-duplicates"
	e2.AccountID = ""
	require.NoError(t, Append(path, []Entry{e2}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bulletproof-sync", entries[0].Operation)
	assert.Equal(t, "cleanup-duplicates", entries[1].Operation)
}

func TestRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	original := testEntry()
	require.NoError(t, Append(path, []Entry{original}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	got.Timestamp = original.Timestamp
	assert.Equal(t, original, got)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, os.WriteFile(path, []byte(Header+"\n"), 0o644))

	entries, err := Read(path)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 11 fields")
}

func TestUnmarshalEntry_BadCount(t *testing.T) {
	row := MarshalEntry(testEntry())
	row[colCreated] = "many"
	_, err := UnmarshalEntry(row)
	assert.Error(t, err)
}

func TestAppend_CreatesDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "runs.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	info, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	rec := NewRecorder(path)

	err := rec.Record(context.Background(), reconcile.Run{
		Time:      testTime,
		UserID:    "u1",
		Operation: reconcile.OpSync,
		Window: model.Window{
			UserID:    "u1",
			AccountID: "checking",
			Start:     model.StartOfDay(testTime),
			End:       model.EndOfDay(testTime),
		},
		Created: 3,
		Message: "Synced 3 transactions",
	})
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), reconcile.Run{
		Time:      testTime,
		UserID:    "u1",
		Operation: reconcile.OpCleanup,
		Deleted:   2,
	}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "sync", entries[0].Operation)
	assert.Equal(t, "2025-01-15", entries[0].WindowStart)
	assert.Equal(t, "2025-01-15", entries[0].WindowEnd)
	assert.Equal(t, 3, entries[0].Created)
	assert.Equal(t, "", entries[1].WindowStart)
	assert.Equal(t, 2, entries[1].Deleted)
}
