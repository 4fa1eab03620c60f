package filecache

import (
	"context"
	"os"
)

// diskReader streams an object from a named non-local storage disk into a
// cache entry descriptor.
type diskReader struct{}

func (diskReader) fetch(ctx context.Context, disk Disk, objectPath string, maxFileSize int64, dst *os.File) (int64, error) {
	src, err := disk.OpenReadStream(ctx, objectPath)
	if err != nil {
		return 0, newError(KindFetchFailed, disk.Name()+"://"+objectPath, err)
	}
	defer src.Close()

	n, err := copyWithLimit(dst, src, maxFileSize)
	if err != nil {
		url := disk.Name() + "://" + objectPath
		if err == errTooLarge {
			return n, newError(KindFileTooLarge, url, err)
		}
		if isTimeoutErr(err) {
			return n, newError(KindSourceTimeout, url, err)
		}
		return n, newError(KindFetchFailed, url, err)
	}
	return n, nil
}

// probe queries the disk for existence and, when policy requires it, MIME
// type and size.
func (diskReader) probe(ctx context.Context, disk Disk, objectPath string, cfg Config) (bool, error) {
	exists, err := disk.Exists(ctx, objectPath)
	if err != nil {
		return false, newError(KindFetchFailed, disk.Name()+"://"+objectPath, err)
	}
	if !exists {
		return false, nil
	}

	if len(cfg.MimeTypes) > 0 {
		mt, err := disk.MimeType(ctx, objectPath)
		if err != nil {
			return false, newError(KindFetchFailed, disk.Name()+"://"+objectPath, err)
		}
		if !cfg.mimeAllowed(mt) {
			return false, newError(KindDisallowedMime, disk.Name()+"://"+objectPath, errDisallowedMime(mt))
		}
	}

	if cfg.MaxFileSize >= 0 {
		size, err := disk.Size(ctx, objectPath)
		if err == nil && size > int64(cfg.MaxFileSize) {
			return false, newError(KindFileTooLarge, disk.Name()+"://"+objectPath, errTooLarge)
		}
	}

	return true, nil
}
