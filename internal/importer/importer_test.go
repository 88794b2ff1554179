package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeledger/homeledger/internal/reconcile"
)

type fakeSyncer struct {
	syncs       []reconcile.SyncRequest
	bulletproof []reconcile.BulletproofRequest
	err         error
}

func (f *fakeSyncer) Synchronize(_ context.Context, _ string, req reconcile.SyncRequest) (reconcile.SyncResponse, error) {
	f.syncs = append(f.syncs, req)
	return reconcile.SyncResponse{Success: true, Message: "synced"}, f.err
}

func (f *fakeSyncer) BulletproofSync(_ context.Context, _ string, req reconcile.BulletproofRequest) (reconcile.BulletproofResponse, error) {
	f.bulletproof = append(f.bulletproof, req)
	return reconcile.BulletproofResponse{Success: true, Message: "replaced"}, f.err
}

func TestScan_FindsJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "january.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "january.json", files[0].Name)
	assert.Equal(t, int64(2), files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "old.json"), []byte("{}"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.json", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "inbox"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestLoad_Sync(t *testing.T) {
	p, err := Load("../../testdata/sync_checking.json")
	require.NoError(t, err)
	assert.Equal(t, KindSync, p.Kind)
	assert.NotEmpty(t, p.Sync.Transactions)
}

func TestLoad_Bulletproof(t *testing.T) {
	p, err := Load("../../testdata/bulletproof_checking.json")
	require.NoError(t, err)
	assert.Equal(t, KindBulletproof, p.Kind)
	assert.Equal(t, "checking", p.Bulletproof.AccountID)
	assert.Equal(t, "2025-01-01", p.Bulletproof.StartDate)
	assert.Equal(t, "2025-01-31", p.Bulletproof.EndDate)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	f := &fakeSyncer{}

	msg, err := Payload{Kind: KindSync}.Apply(context.Background(), f, "u1")
	require.NoError(t, err)
	assert.Equal(t, "synced", msg)

	msg, err = Payload{Kind: KindBulletproof}.Apply(context.Background(), f, "u1")
	require.NoError(t, err)
	assert.Equal(t, "replaced", msg)

	assert.Len(t, f.syncs, 1)
	assert.Len(t, f.bulletproof, 1)

	_, err = Payload{Kind: "csv"}.Apply(context.Background(), f, "u1")
	assert.Error(t, err)
}

func TestApply_PropagatesError(t *testing.T) {
	f := &fakeSyncer{err: errors.New("boom")}
	_, err := Payload{Kind: KindSync}.Apply(context.Background(), f, "u1")
	assert.EqualError(t, err, "boom")
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.json"), []byte("{}"), 0o644))

	require.NoError(t, MarkProcessed(dir, "bank.json"))

	// Source gone.
	_, err := os.Stat(filepath.Join(dir, "bank.json"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	_, err = os.Stat(filepath.Join(dir, "processed", "bank.json"))
	assert.NoError(t, err)
}

func TestMarkProcessed_Missing(t *testing.T) {
	assert.Error(t, MarkProcessed(t.TempDir(), "ghost.json"))
}
