// Package diskdrv provides concrete filecache.Disk implementations: a local
// directory, an S3 bucket, and a Databricks Workspace Files tree.
package diskdrv

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"

	"filecache"
)

// LocalDisk backs filecache's LocalResolver path: a directory on the same
// host whose files are referenced in place, never copied into the cache.
type LocalDisk struct {
	name string
	root string
}

// NewLocalDisk returns a LocalDisk rooted at root.
func NewLocalDisk(name, root string) *LocalDisk {
	return &LocalDisk{name: name, root: root}
}

func (d *LocalDisk) Name() string               { return d.name }
func (d *LocalDisk) Driver() filecache.DriverKind { return filecache.DriverLocal }
func (d *LocalDisk) PathPrefix() (string, bool)  { return d.root, true }

func (d *LocalDisk) OpenReadStream(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, objectPath))
}

func (d *LocalDisk) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := os.Stat(filepath.Join(d.root, objectPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (d *LocalDisk) MimeType(ctx context.Context, objectPath string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(objectPath)); t != "" {
		return t, nil
	}
	return "", nil
}

func (d *LocalDisk) Size(ctx context.Context, objectPath string) (int64, error) {
	fi, err := os.Stat(filepath.Join(d.root, objectPath))
	if err != nil {
		return -1, err
	}
	return fi.Size(), nil
}

func init() {
	filecache.RegisterDiskBuilder("local", func(name, path, bucket, region, prefix string) (filecache.Disk, error) {
		return NewLocalDisk(name, path), nil
	})
}
