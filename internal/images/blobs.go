package images

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var ErrNotFound = errors.New("image not found")

// Blobs persists one image per monument id.
type Blobs interface {
	Exists(ctx context.Context, id int) (bool, error)
	Read(ctx context.Context, id int) ([]byte, error)
	Write(ctx context.Context, id int, data []byte) error
}

func blobName(id int) string {
	return strconv.Itoa(id) + ".jpg"
}

// Dir stores images as <id>.jpg files in a directory.
type Dir struct {
	path string
}

func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Path() string { return d.path }

func (d *Dir) Exists(_ context.Context, id int) (bool, error) {
	_, err := os.Stat(filepath.Join(d.path, blobName(id)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (d *Dir) Read(_ context.Context, id int) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.path, blobName(id)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write goes through a temp file and a rename so readers never see a
// partial image.
func (d *Dir) Write(_ context.Context, id int, data []byte) error {
	tmp, err := os.CreateTemp(d.path, blobName(id)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %d: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %d: %w", id, err)
	}

	return os.Rename(tmp.Name(), filepath.Join(d.path, blobName(id)))
}
