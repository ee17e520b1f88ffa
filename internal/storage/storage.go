package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Dir stores uploaded template files on disk under a root directory. Keys
// are opaque paths relative to the root, assigned at save time; callers
// never construct them.
type Dir struct {
	root string
}

func New(root string) (*Dir, error) {
	if err := os.MkdirAll(filepath.Join(root, "uploads"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Save writes data under a fresh opaque key and returns the key.
func (d *Dir) Save(data []byte) (string, error) {
	key := filepath.Join("uploads", uuid.NewString()+".pdf")
	if err := os.WriteFile(filepath.Join(d.root, key), data, 0o644); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return key, nil
}

// Root returns the directory all keys resolve under, for serving stored
// files over HTTP.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) Exists(key string) bool {
	_, err := os.Stat(filepath.Join(d.root, key))
	return err == nil
}

// Read returns the stored bytes. The error wraps fs.ErrNotExist when the
// file is gone, e.g. after an ephemeral volume reset; callers use that to
// tell "re-upload needed" apart from real failures.
func (d *Dir) Read(key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, key))
}
