package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/homeledger/homeledger/internal/reconcile"
)

// Kind tells which reconcile operation a payload is for.
type Kind string

const (
	KindSync        Kind = "sync"
	KindBulletproof Kind = "bulletproof-sync"
)

// FileInfo describes a payload file in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Payload is a decoded inbox file. Exactly one of Sync and Bulletproof is
// meaningful, as selected by Kind.
type Payload struct {
	Kind        Kind
	Sync        reconcile.SyncRequest
	Bulletproof reconcile.BulletproofRequest
}

// Syncer applies payloads. It is satisfied by *reconcile.Service.
type Syncer interface {
	Synchronize(ctx context.Context, userID string, req reconcile.SyncRequest) (reconcile.SyncResponse, error)
	BulletproofSync(ctx context.Context, userID string, req reconcile.BulletproofRequest) (reconcile.BulletproofResponse, error)
}

// processedDir is the inbox subdirectory for applied payloads.
const processedDir = "processed"

// Scan returns the JSON payloads in dir. A missing dir is empty.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// Load decodes a payload file. Files that name an account or a date range at
// the top level are bulletproof syncs; the rest are plain syncs.
func Load(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("reading payload: %w", err)
	}

	var req reconcile.BulletproofRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return Payload{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	if req.AccountID != "" || req.StartDate != "" || req.EndDate != "" {
		return Payload{Kind: KindBulletproof, Bulletproof: req}, nil
	}
	return Payload{Kind: KindSync, Sync: reconcile.SyncRequest{Transactions: req.Transactions}}, nil
}

// Apply runs the payload for userID and returns the operation's message.
func (p Payload) Apply(ctx context.Context, s Syncer, userID string) (string, error) {
	switch p.Kind {
	case KindBulletproof:
		resp, err := s.BulletproofSync(ctx, userID, p.Bulletproof)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	case KindSync:
		resp, err := s.Synchronize(ctx, userID, p.Sync)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	default:
		return "", fmt.Errorf("unknown payload kind %q", p.Kind)
	}
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
