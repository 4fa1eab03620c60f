package filecache

import (
	"context"
	"path/filepath"
)

// localResolver resolves an object on a local-mount disk to an absolute
// path without copying any bytes. The Retrieve Engine is responsible for
// unlinking the placeholder it speculatively created once this path is
// returned.
type localResolver struct{}

func (localResolver) resolve(ctx context.Context, disk Disk, objectPath string) (string, error) {
	prefix, ok := disk.PathPrefix()
	if !ok {
		return "", newError(KindIoError, disk.Name()+"://"+objectPath, errNotLocalDisk)
	}

	exists, err := disk.Exists(ctx, objectPath)
	if err != nil {
		return "", newError(KindFetchFailed, disk.Name()+"://"+objectPath, err)
	}
	if !exists {
		return "", newError(KindNotFound, disk.Name()+"://"+objectPath, errObjectNotFound)
	}

	return filepath.Join(prefix, objectPath), nil
}
