package storage

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Disk stores files in a single directory served under URLPrefix.
type Disk struct {
	Root      string
	URLPrefix string
}

// NewDisk creates root if needed.
func NewDisk(root, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload directory %s", root)
	}
	return &Disk{Root: root, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Path returns the file location for key.
func (d *Disk) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", errors.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(d.Root, clean), nil
}

func (d *Disk) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	p, err := d.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.Wrap(err, "create upload subdirectory")
	}
	// O_EXCL: keys are generated and must never overwrite each other.
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", p)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", errors.Wrapf(err, "write %s", p)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", errors.Wrapf(err, "close %s", p)
	}
	return path.Join(d.URLPrefix, filepath.ToSlash(key)), nil
}

func (d *Disk) Get(_ context.Context, key string) ([]byte, error) {
	p, err := d.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", p)
	}
	return data, nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove %s", p)
	}
	return nil
}
