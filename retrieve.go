package filecache

import (
	"context"
	"io"
	"net/http"
	"os"
	"syscall"
	"time"

	"filecache/internal/logging"
	"filecache/internal/urlutil"
)

// maxRetrieveAttempts bounds the iterative follower-restart loop in
// retrieve. A chronically failing URL fails with FetchFailed{errRepeatedFailure}
// rather than looping forever.
const maxRetrieveAttempts = 3

// retrieve implements the creator/follower protocol described for the
// Retrieve Engine: produce a (path, pin) for file, deduplicating concurrent
// fetches of the same URL across processes via advisory locks on the cache
// entry itself.
func (c *Cache) retrieve(ctx context.Context, file LogicalFile) (string, *Pin, error) {
	if err := os.MkdirAll(c.cfg.Path, 0755); err != nil {
		return "", nil, newError(KindIoError, file.URL(), err)
	}

	cachedPath := c.KeyFor(file)

	for attempt := 0; attempt < maxRetrieveAttempts; attempt++ {
		path, pin, retry, err := c.retrieveOnce(ctx, file, cachedPath)
		if !retry {
			return path, pin, err
		}
		logging.Debugf("retrieve: entry for %s vanished mid-wait, attempt %d/%d", file.URL(), attempt+1, maxRetrieveAttempts)
	}

	return "", nil, newError(KindFetchFailed, file.URL(), errRepeatedFailure)
}

// retrieveOnce runs a single creator-or-follower pass. retry is true when the
// follower observed an unlinked entry and the caller should loop again.
func (c *Cache) retrieveOnce(ctx context.Context, file LogicalFile, cachedPath string) (path string, pin *Pin, retry bool, err error) {
	f, err := os.OpenFile(cachedPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return "", nil, false, newError(KindIoError, file.URL(), err)
		}
		return c.followEntry(ctx, file, cachedPath)
	}
	return c.createEntry(ctx, file, cachedPath, f)
}

// createEntry is Branch A: we won the race to create cachedPath and are
// responsible for populating it.
func (c *Cache) createEntry(ctx context.Context, file LogicalFile, cachedPath string, f *os.File) (string, *Pin, bool, error) {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		os.Remove(cachedPath)
		return "", nil, false, newError(KindIoError, file.URL(), err)
	}

	resolvedPath, isLocalBypass, err := c.populateEntry(ctx, file, cachedPath, f)
	if err != nil {
		os.Remove(cachedPath)
		f.Close()
		return "", nil, false, err
	}

	if len(c.cfg.MimeTypes) > 0 {
		mimeSrc := resolvedPath
		mt, mimeErr := detectFileMime(mimeSrc)
		if mimeErr != nil {
			os.Remove(cachedPath)
			f.Close()
			return "", nil, false, newError(KindIoError, file.URL(), mimeErr)
		}
		if !c.cfg.mimeAllowed(mt) {
			os.Remove(cachedPath)
			f.Close()
			return "", nil, false, newError(KindDisallowedMime, file.URL(), errDisallowedMime(mt))
		}
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err != nil {
		os.Remove(cachedPath)
		f.Close()
		return "", nil, false, newError(KindIoError, file.URL(), err)
	}

	cachePathForPin := cachedPath
	if isLocalBypass {
		// the placeholder was already unlinked by populateEntry; never
		// attempt to delete the external local-mount file on release.
		cachePathForPin = ""
	} else {
		touch(cachedPath)
		mRetrieveMissesTotal.Inc()
	}

	return resolvedPath, newPin(f, cachePathForPin, false), false, nil
}

// populateEntry dispatches to the appropriate source reader and returns the
// path callers should receive. isLocalBypass is true when the placeholder
// has already been unlinked because the URL resolved to a local-mount file.
func (c *Cache) populateEntry(ctx context.Context, file LogicalFile, cachedPath string, f *os.File) (resolvedPath string, isLocalBypass bool, err error) {
	scheme, rest, ok := urlutil.SplitSchemeHost(file.URL())
	if !ok {
		return "", false, newError(KindFetchFailed, file.URL(), errMalformedURL)
	}

	if scheme == "http" || scheme == "https" {
		n, ferr := c.remote.fetch(ctx, file.URL(), c.cfg.Timeout, int64(c.cfg.MaxFileSize), f)
		if ferr != nil {
			return "", false, ferr
		}
		mBytesFetchedTotal.Add(float64(n))
		return cachedPath, false, nil
	}

	disk, ok := c.disks.Lookup(scheme)
	if !ok {
		return "", false, newError(KindUnknownDisk, file.URL(), errUnknownDisk(scheme))
	}

	if disk.Driver() == DriverLocal {
		resolved, rerr := c.local.resolve(ctx, disk, rest)
		if rerr != nil {
			return "", false, rerr
		}
		// drop the placeholder's link count to zero; any follower that
		// raced us onto this path observes nlink == 0 and restarts.
		os.Remove(cachedPath)
		return resolved, true, nil
	}

	n, ferr := c.diskReader.fetch(ctx, disk, rest, int64(c.cfg.MaxFileSize), f)
	if ferr != nil {
		return "", false, ferr
	}
	mBytesFetchedTotal.Add(float64(n))
	return cachedPath, false, nil
}

// followEntry is Branch B: cachedPath already exists; wait for its writer
// (if any) to finish and inspect whether it succeeded.
func (c *Cache) followEntry(ctx context.Context, file LogicalFile, cachedPath string) (string, *Pin, bool, error) {
	f, err := os.Open(cachedPath)
	if err != nil {
		if os.IsNotExist(err) {
			// the creator already unlinked it (failure or local bypass)
			// before we could open it; restart.
			return "", nil, true, nil
		}
		return "", nil, false, newError(KindIoError, file.URL(), err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err != nil {
		f.Close()
		return "", nil, false, newError(KindIoError, file.URL(), err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return "", nil, false, newError(KindIoError, file.URL(), err)
	}

	if nlinkOf(fi) == 0 {
		f.Close()
		return "", nil, true, nil
	}

	touch(cachedPath)
	mRetrieveHitsTotal.Inc()
	return cachedPath, newPin(f, cachedPath, false), false, nil
}

func touch(path string) {
	now := time.Now()
	_ = os.Chtimes(path, now, now)
}

// nlinkOf extracts the hard-link count from a FileInfo's platform-specific
// Sys() value.
func nlinkOf(fi os.FileInfo) uint64 {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 1
	}
	return uint64(st.Nlink)
}

// detectFileMime sniffs a file's content type the way net/http does for
// unlabeled responses: the first 512 bytes are enough for the sniffer's
// signature table.
func detectFileMime(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return stripMimeParams(http.DetectContentType(buf[:n])), nil
}
