package fsview

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"filecache"
	// Registers the "local" and "s3" disk drivers so a cache whose registry
	// was loaded from an ini file can resolve disk-scheme files served over
	// this mount, not just http(s):// ones.
	_ "filecache/diskdrv"
)

// MountServer is the subset of *fuse.Server that callers need to wait for
// unmount and to unmount programmatically.
type MountServer interface {
	Wait()
	Unmount() error
}

// MountOptions configures Mount. AllowOther mirrors the libfuse option of
// the same name; Debug enables go-fuse's own request tracing.
type MountOptions struct {
	AllowOther bool
	Debug      bool
}

func buildOptions(opts MountOptions) *fs.Options {
	attrTimeout := 30 * time.Second
	entryTimeout := 30 * time.Second
	negativeTimeout := 10 * time.Second

	fsOpts := &fs.Options{
		AttrTimeout:     &attrTimeout,
		EntryTimeout:    &entryTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			AllowOther: opts.AllowOther,
			Name:       "fsview",
			FsName:     "filecache",
		},
	}
	fsOpts.Debug = opts.Debug
	return fsOpts
}

// Mount builds a Root over cache and mounts it read-only at mountPoint.
func Mount(mountPoint string, cache *filecache.Cache, opts MountOptions) (*Root, MountServer, error) {
	root := NewRoot(cache)
	server, err := fs.Mount(mountPoint, root, buildOptions(opts))
	if err != nil {
		return nil, nil, err
	}
	return root, server, nil
}
