package graphsnap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/graphsnap/internal/archive"
)

// Archive is a durable store of exported snapshots keyed by snapshot id and
// creation time.
type Archive = archive.Archive

// ArchiveEntry describes one archived snapshot.
type ArchiveEntry = archive.Entry

// ErrNotArchived is returned when the archive holds no snapshot for an id.
var ErrNotArchived = archive.ErrNotFound

// OpenArchive opens or creates the snapshot archive in dir.
func OpenArchive(dir string, readOnly bool) (*Archive, error) {
	return archive.Open(dir, readOnly)
}

// Export writes s to path in its persisted JSON form, creating parent
// directories as needed. The file is replaced atomically. It returns the path
// written.
func Export(s *Snapshot, path string) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a snapshot written by Export.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// ArchiveSnapshot stores s in a under its id and creation time.
func ArchiveSnapshot(a *Archive, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return a.Put(s.id, s.createdAt, data)
}

// RestoreSnapshot returns the most recently archived snapshot of id.
func RestoreSnapshot(a *Archive, id string) (*Snapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: snapshot id is required", ErrInvalidArgument)
	}
	_, data, err := a.Latest(id)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	return &s, nil
}

// RestoreSnapshotAt returns the snapshot of id archived at createdAt.
func RestoreSnapshotAt(a *Archive, id, createdAt string) (*Snapshot, error) {
	if id == "" || createdAt == "" {
		return nil, fmt.Errorf("%w: snapshot id and creation time are required", ErrInvalidArgument)
	}
	data, err := a.Get(id, createdAt)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore %s at %s: %w", id, createdAt, err)
	}
	return &s, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
