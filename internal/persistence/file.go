package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// FileBackend keeps one JSON document per identifier in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &FileBackend{dir: dir}, nil
}

// Name returns "file".
func (b *FileBackend) Name() string { return types.EngineFile }

func (b *FileBackend) path(id string) string {
	return filepath.Join(b.dir, objectName(id))
}

// Save writes the record atomically.
func (b *FileBackend) Save(_ context.Context, id string, rec types.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return writeFileAtomic(b.path(id), append(data, '\n'))
}

// Load reads the record under id.
func (b *FileBackend) Load(_ context.Context, id string) (types.Record, error) {
	data, err := os.ReadFile(b.path(id))
	if os.IsNotExist(err) {
		return types.Record{}, errors.Wrapf(ErrRecordNotFound, "identifier %q", id)
	}
	if err != nil {
		return types.Record{}, errors.Wrapf(err, "reading %s", b.path(id))
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Record{}, errors.Wrapf(err, "decoding %s", b.path(id))
	}
	return rec, nil
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }

// writeFileAtomic writes data using the temp-file, fsync, rename pattern so
// readers never see a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "renaming temp file")
	}
	return nil
}
