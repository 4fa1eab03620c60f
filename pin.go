package filecache

import (
	"os"
	"sync"
	"syscall"
)

// Pin is an opaque handle tying a caller to a cache entry. While a Pin is
// held the entry cannot be evicted. It must be released on every exit path,
// including errors and panics.
type Pin struct {
	f          *os.File
	cachePath  string // "" for local-mount bypass entries (nothing to unlink)
	deleteOnce bool   // GetOnce/BatchOnce semantics

	mu       sync.Mutex
	released bool
}

// Path is the path the pin's descriptor was opened at: the cache entry. For a
// local-mount bypass pin this is the unlinked placeholder, not the resolved
// local file.
func (p *Pin) Path() string { return p.f.Name() }

// Release closes the underlying descriptor, dropping whatever advisory lock
// it held and permitting eviction. If the pin was created with delete-on-
// release semantics, it first attempts a non-blocking upgrade to an
// exclusive lock and unlinks the entry on success. Release is idempotent and
// safe to call more than once.
func (p *Pin) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil
	}
	p.released = true

	if p.deleteOnce && p.cachePath != "" {
		if err := syscall.Flock(int(p.f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err == nil {
			_ = os.Remove(p.cachePath)
		}
	}

	mActivePins.Dec()
	return p.f.Close()
}

func newPin(f *os.File, cachePath string, deleteOnce bool) *Pin {
	mActivePins.Inc()
	return &Pin{f: f, cachePath: cachePath, deleteOnce: deleteOnce}
}
