package objstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Disk stores images on the local filesystem, served back under
// baseURL/uploads/.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates the upload directory if needed.
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objstore: create upload dir: %w", err)
	}
	return &Disk{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *Disk) Put(_ context.Context, name string, data []byte, contentType string) (string, error) {
	obj := objectName(name, contentType)
	if err := os.WriteFile(filepath.Join(d.dir, obj), data, 0o644); err != nil {
		return "", fmt.Errorf("objstore: write file: %w", err)
	}
	return d.baseURL + "/uploads/" + obj, nil
}

// Delete removes the backing file. A URL pointing at an already-absent
// file is not an error.
func (d *Disk) Delete(_ context.Context, url string) error {
	obj := path.Base(url)
	if obj == "." || obj == "/" || obj == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(d.dir, obj)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("objstore: remove file: %w", err)
	}
	return nil
}
