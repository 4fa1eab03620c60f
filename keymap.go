package filecache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// KeyFor derives the deterministic cache-entry path for a logical file. It
// depends only on file.URL(); equal URLs always produce equal keys. The
// legacy identifier-based key (some other implementations hash f.ID()
// instead) is not used here — URL hash is authoritative.
func (c *Cache) KeyFor(file LogicalFile) string {
	return filepath.Join(c.cfg.Path, hashURL(file.URL()))
}

func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
