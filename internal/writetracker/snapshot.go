package writetracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/sitepipe/internal/fileio"
)

// ErrNoSnapshot is returned by stores that have nothing persisted yet.
var ErrNoSnapshot = errors.New("no write snapshot")

// Snapshot is the persisted form of one tracker generation.
type Snapshot struct {
	Writes   map[string]uint64 `json:"writes"`
	Contents map[string]uint64 `json:"contents"`
}

// SnapshotStore persists snapshots between runs.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// JSONFileStore keeps the snapshot in a single JSON file.
type JSONFileStore struct {
	fs   fileio.FileSystem
	path string
}

// NewJSONFileStore returns a store writing to path on fs.
func NewJSONFileStore(fs fileio.FileSystem, path string) *JSONFileStore {
	return &JSONFileStore{fs: fs, path: path}
}

// Load implements SnapshotStore.
func (s *JSONFileStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if !s.fs.Exists(s.path) {
		return Snapshot{}, ErrNoSnapshot
	}
	data, err := fileio.ReadFile(s.fs, s.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	return snap, nil
}

// Save implements SnapshotStore.
func (s *JSONFileStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.Writes == nil {
		snap.Writes = map[string]uint64{}
	}
	if snap.Contents == nil {
		snap.Contents = map[string]uint64{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return fileio.WriteFile(s.fs, s.path, data)
}
