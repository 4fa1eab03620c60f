// Package filecache implements a local file cache that mediates access to
// files backed by a remote HTTP(S) endpoint, a named object-storage disk, or
// a named local-disk mount. The concurrent retrieve/retain/evict protocol is
// coordinated entirely through the filesystem: advisory flock on the cache
// entry itself, with no in-process singleton and no cross-host coordination.
package filecache

import (
	"context"
	"io"
	"os"

	"filecache/internal/urlutil"
)

// Cache is the facade consumers use: Get, GetOnce, Batch, BatchOnce,
// GetStream, Exists, Prune, Clear. It holds no process-wide state beyond its
// own Config and disk Registry, so constructing more than one Cache over the
// same cache root is safe — all coordination happens via file locks, not
// in-memory bookkeeping.
type Cache struct {
	cfg        Config
	disks      *Registry
	remote     *remoteReader
	diskReader diskReader
	local      localResolver
}

// New constructs a Cache over cfg's cache root, resolving disk:// URLs
// against disks.
func New(cfg Config, disks *Registry) *Cache {
	if disks == nil {
		disks = NewRegistry()
	}
	return &Cache{
		cfg:    cfg,
		disks:  disks,
		remote: newRemoteReader(cfg.BindIP),
	}
}

// Get pins file, invokes cb with the resolved local path, and releases the
// pin on every exit path — including a panic or error from cb.
func (c *Cache) Get(ctx context.Context, file LogicalFile, cb func(file LogicalFile, path string) (any, error)) (any, error) {
	mRetrieveRequestsTotal.Inc()
	path, pin, err := c.retrieve(ctx, file)
	if err != nil {
		mRetrieveFailuresTotal.Inc()
		return nil, err
	}
	defer pin.Release()

	return cb(file, path)
}

// GetOnce behaves like Get, but attempts delete-on-release: after cb
// returns, if no other pin is concurrently held on the entry, it is deleted.
func (c *Cache) GetOnce(ctx context.Context, file LogicalFile, cb func(file LogicalFile, path string) (any, error)) (any, error) {
	mRetrieveRequestsTotal.Inc()
	path, pin, err := c.retrieve(ctx, file)
	if err != nil {
		mRetrieveFailuresTotal.Inc()
		return nil, err
	}
	pin.deleteOnce = true
	defer pin.Release()

	return cb(file, path)
}

// Batch pins every file in files (in order), invokes cb with the full file
// and path lists, and releases all pins — on success or failure. If any file
// fails to retrieve, already-acquired pins are released before the error is
// returned and cb is never invoked.
func (c *Cache) Batch(ctx context.Context, files []LogicalFile, cb func(files []LogicalFile, paths []string) (any, error)) (any, error) {
	return c.batch(ctx, files, false, cb)
}

// BatchOnce is Batch with per-file delete-on-release semantics.
func (c *Cache) BatchOnce(ctx context.Context, files []LogicalFile, cb func(files []LogicalFile, paths []string) (any, error)) (any, error) {
	return c.batch(ctx, files, true, cb)
}

func (c *Cache) batch(ctx context.Context, files []LogicalFile, deleteOnce bool, cb func(files []LogicalFile, paths []string) (any, error)) (any, error) {
	pins := make([]*Pin, 0, len(files))
	paths := make([]string, 0, len(files))

	releaseAll := func() {
		for i := len(pins) - 1; i >= 0; i-- {
			pins[i].Release()
		}
	}

	for _, file := range files {
		mRetrieveRequestsTotal.Inc()
		path, pin, err := c.retrieve(ctx, file)
		if err != nil {
			mRetrieveFailuresTotal.Inc()
			releaseAll()
			return nil, err
		}
		if deleteOnce {
			pin.deleteOnce = true
		}
		pins = append(pins, pin)
		paths = append(paths, path)
	}

	defer releaseAll()
	return cb(files, paths)
}

// GetStream is the non-pinning bypass: if the entry already exists, it is
// touched and a stream is opened on the local path without acquiring any
// lock (callers accept a best-effort view). Otherwise, for remote URLs a
// stream is opened directly on the URL; for disk URLs, the disk's own read
// stream is returned. GetStream never writes into the cache.
func (c *Cache) GetStream(ctx context.Context, file LogicalFile) (io.ReadCloser, error) {
	cachedPath := c.KeyFor(file)

	if fi, err := os.Stat(cachedPath); err == nil && fi.Mode().IsRegular() {
		touch(cachedPath)
		return os.Open(cachedPath)
	}

	scheme, rest, ok := urlutil.SplitSchemeHost(file.URL())
	if !ok {
		return nil, newError(KindFetchFailed, file.URL(), errMalformedURL)
	}

	if scheme == "http" || scheme == "https" {
		return c.remote.openStream(ctx, file.URL(), c.cfg.Timeout)
	}

	disk, ok := c.disks.Lookup(scheme)
	if !ok {
		return nil, newError(KindUnknownDisk, file.URL(), errUnknownDisk(scheme))
	}
	if disk.Driver() == DriverLocal {
		prefix, _ := disk.PathPrefix()
		return os.Open(prefix + "/" + rest)
	}
	stream, err := disk.OpenReadStream(ctx, rest)
	if err != nil {
		return nil, newError(KindFetchFailed, file.URL(), err)
	}
	return stream, nil
}

// Exists is the true/false probe described for each source kind; it may
// fail with a policy error (DisallowedMime, FileTooLarge) rather than
// simply returning false.
func (c *Cache) Exists(ctx context.Context, file LogicalFile) (bool, error) {
	scheme, rest, ok := urlutil.SplitSchemeHost(file.URL())
	if !ok {
		return false, newError(KindFetchFailed, file.URL(), errMalformedURL)
	}

	if scheme == "http" || scheme == "https" {
		return c.remote.probe(ctx, file.URL(), c.cfg.Timeout, c.cfg)
	}

	disk, ok := c.disks.Lookup(scheme)
	if !ok {
		return false, newError(KindUnknownDisk, file.URL(), errUnknownDisk(scheme))
	}
	return c.diskReader.probe(ctx, disk, rest, c.cfg)
}

// Prune invokes the Eviction Engine's age- and size-based passes.
func (c *Cache) Prune() error {
	return c.evict(c.cfg.maxAgeDuration(), int64(c.cfg.MaxSize))
}

// Clear deletes every safe-deletable entry (a Prune with no age/size
// thresholds).
func (c *Cache) Clear() error {
	return c.clearAll()
}
