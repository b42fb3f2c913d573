package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/legisearch/legisearch/internal/domain"
)

const (
	snapshotFileName    = "snapshot.json"
	snapshotFileVersion = 1
)

// FileStore persists index snapshots as a JSON file under a directory.
// Reloading restores the full dual index without re-embedding the corpus.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

type snapshotFile struct {
	Version   int           `json:"version"`
	BuiltAt   time.Time     `json:"built_at"`
	Documents []DocumentRef `json:"documents"`
	Entries   []Entry       `json:"entries"`
	Skipped   []string      `json:"skipped,omitempty"`
}

// Save writes the snapshot atomically: a temp file is written first and
// renamed over the previous snapshot, so readers of the old file never see
// a partial write.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	payload, err := json.Marshal(snapshotFile{
		Version:   snapshotFileVersion,
		BuiltAt:   snap.BuiltAt(),
		Documents: snap.Documents(),
		Entries:   snap.Entries(),
		Skipped:   snap.Skipped(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, snapshotFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, snapshotFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish snapshot file: %w", err)
	}

	return nil
}

// Load reads and rebuilds the persisted snapshot. Returns
// domain.ErrSnapshotNotFound when none exists.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(filepath.Join(s.dir, snapshotFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if file.Version != snapshotFileVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", file.Version)
	}

	return NewSnapshot(file.Documents, file.Entries, file.Skipped), nil
}

// Reset removes the persisted snapshot, if any.
func (s *FileStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, snapshotFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
