// Package fsview presents a filecache.Cache as a read-only, flat-directory
// FUSE filesystem. A caller registers LogicalFile values under a name before
// mounting; the mount then serves each name as a regular file whose bytes
// come from Cache.Get. It is a demonstration consumer, not part of the cache
// itself: the facade's contract ("retrieve, hand back a path or bytes,
// release on exit") is unchanged, fsview just drives it from FUSE
// callbacks instead of a direct function call.
package fsview

import (
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"filecache"
	"filecache/internal/logging"
)

const (
	dirMode  = 0755
	fileMode = 0644

	attrTimeoutSec  = 60
	entryTimeoutSec = 60
)

// Root is the filesystem's single directory. It holds the registered name ->
// LogicalFile mapping; Lookup and Readdir both read from it.
type Root struct {
	fs.Inode

	cache *filecache.Cache

	mu    sync.RWMutex
	files map[string]filecache.LogicalFile
}

var _ = (fs.NodeOnAdder)((*Root)(nil))
var _ = (fs.NodeGetattrer)((*Root)(nil))
var _ = (fs.NodeReaddirer)((*Root)(nil))
var _ = (fs.NodeLookuper)((*Root)(nil))

// NewRoot builds the root directory node for cache. Files are added with
// Register before or after the filesystem is mounted.
func NewRoot(cache *filecache.Cache) *Root {
	return &Root{cache: cache, files: make(map[string]filecache.LogicalFile)}
}

// Register exposes file under name in the mounted directory. Registering an
// existing name replaces its LogicalFile; the next Lookup picks up the new
// mapping (any FileNode already returned to the kernel for the old
// inode keeps its own reference, so in-flight reads are unaffected).
func (r *Root) Register(name string, file filecache.LogicalFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[name] = file
}

// Unregister removes name from the directory. It does not evict the
// underlying cache entry.
func (r *Root) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, name)
}

func (r *Root) lookupFile(name string) (filecache.LogicalFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[name]
	return f, ok
}

// OnAdd is a no-op hook kept so Root satisfies fs.NodeOnAdder the way the
// teacher's root node did; fsview builds its tree lazily via Lookup instead
// of populating it up front.
func (r *Root) OnAdd(ctx context.Context) {}

func (r *Root) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | dirMode
	out.Nlink = 2
	out.SetTimeout(attrTimeoutSec)
	return 0
}

func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	r.mu.RLock()
	entries := make([]fuse.DirEntry, 0, len(r.files))
	for name := range r.files {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFREG})
	}
	r.mu.RUnlock()

	return fs.NewListDirStream(entries), 0
}

func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	file, ok := r.lookupFile(name)
	if !ok {
		return nil, syscall.ENOENT
	}

	logging.Debugf("fsview: lookup %s -> %s", name, file.URL())

	out.Mode = syscall.S_IFREG | fileMode
	out.SetEntryTimeout(entryTimeoutSec)
	out.SetAttrTimeout(attrTimeoutSec)

	child := &FileNode{cache: r.cache, file: file}
	return r.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: hashName(name)}), 0
}

func hashName(name string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h
}
