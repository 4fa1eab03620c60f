package filecache

import (
	"fmt"
	"io"
	"mime"
)

// errTooLarge is the sentinel copyWithLimit returns when the source produced
// at least maxFileSize bytes.
var errTooLarge = fmt.Errorf("stream reached max_file_size")

func errBadStatus(code int) error {
	return fmt.Errorf("unexpected HTTP status %d", code)
}

func errDisallowedMime(mimeType string) error {
	return fmt.Errorf("mime type %q not in allow-set", mimeType)
}

// stripMimeParams drops any ";charset=..."-style parameters from a
// Content-Type header value before comparing it against the allow-set.
func stripMimeParams(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

// copyWithLimit copies src into dst, capping the read at maxFileSize+1 bytes
// (a negative maxFileSize disables the cap entirely). If maxFileSize or more
// bytes are produced, it returns errTooLarge — this treats a source exactly
// maxFileSize bytes long as too large, a deliberately conservative choice
// preserved from the overflow detector this design is modeled on.
func copyWithLimit(dst io.Writer, src io.Reader, maxFileSize int64) (int64, error) {
	if maxFileSize < 0 {
		return io.Copy(dst, src)
	}

	limited := io.LimitReader(src, maxFileSize+1)
	n, err := io.Copy(dst, limited)
	if err != nil {
		return n, err
	}
	if n >= maxFileSize {
		return n, errTooLarge
	}
	return n, nil
}
