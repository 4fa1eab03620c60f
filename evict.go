package filecache

import (
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"filecache/internal/logging"
)

// entryStat is what the Eviction Engine needs to know about a surviving
// cache entry between its age pass and its size pass.
type entryStat struct {
	path  string
	atime time.Time
	size  int64
}

// evict runs the two-phase age/size scan described for the Eviction Engine.
// maxAge <= 0 disables age-based eviction; maxSize < 0 disables size-based
// eviction.
func (c *Cache) evict(maxAge time.Duration, maxSize int64) error {
	dirEntries, err := os.ReadDir(c.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newError(KindIoError, "", err)
	}

	now := time.Now()
	var total int64
	survivors := make([]entryStat, 0, len(dirEntries))

	// Phase 1: age.
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(c.cfg.Path, de.Name())
		fi, err := de.Info()
		if err != nil {
			continue
		}

		atime := atimeOf(fi)
		if maxAge > 0 && now.Sub(atime) > maxAge {
			if safeDelete(path) {
				mEvictionsTotal.WithLabelValues("age").Inc()
				logging.Debugf("prune: evicted %s by age", de.Name())
				continue
			}
		}

		total += fi.Size()
		survivors = append(survivors, entryStat{path: path, atime: atime, size: fi.Size()})
	}

	// Phase 2: size, least-recently-used first.
	if maxSize >= 0 && total > maxSize {
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].atime.Before(survivors[j].atime)
		})
		for _, e := range survivors {
			if total <= maxSize {
				break
			}
			if safeDelete(e.path) {
				mEvictionsTotal.WithLabelValues("size").Inc()
				logging.Debugf("prune: evicted %s by size", filepath.Base(e.path))
				total -= e.size
			}
		}
	}

	return nil
}

// clearAll attempts a safe-delete of every entry, regardless of age or size.
func (c *Cache) clearAll() error {
	dirEntries, err := os.ReadDir(c.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newError(KindIoError, "", err)
	}

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(c.cfg.Path, de.Name())
		if safeDelete(path) {
			mEvictionsTotal.WithLabelValues("clear").Inc()
		}
	}
	return nil
}

// safeDelete opens path and attempts a non-blocking exclusive lock; if
// granted, the file is unlinked and the attempt reports success. If the
// lock is held (a shared-lock reader is using the entry), the entry is
// skipped and the attempt reports failure.
func safeDelete(path string) bool {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return false
	}
	return os.Remove(path) == nil
}

// atimeOf extracts the last-access time from a FileInfo's platform-specific
// Sys() value, falling back to ModTime on platforms without Atim.
func atimeOf(fi os.FileInfo) time.Time {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fi.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}
