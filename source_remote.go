package filecache

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"filecache/internal/logging"
	"filecache/internal/retry"
	"filecache/internal/urlutil"
)

// remoteReader fetches http(s):// URLs into a cache entry descriptor.
type remoteReader struct {
	bindIP string
}

func newRemoteReader(bindIP string) *remoteReader {
	return &remoteReader{bindIP: bindIP}
}

// httpClient builds a retrying HTTP client whose transport, when bindIP is
// set, forces the TCP connection to that address while letting the Host
// header and TLS server-name verification proceed against the original
// hostname untouched. scheme picks the port urlutil.BindAddr falls back to
// when addr itself carries none (https defaults to 443, everything else to
// 80).
func (r *remoteReader) httpClient(timeout time.Duration, scheme string) *retry.HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if r.bindIP != "" {
		dialer := &net.Dialer{}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, urlutil.BindAddr(r.bindIP, addr, scheme))
		}
	}
	client := retry.NewHTTPClient(timeout, retry.DefaultConfig())
	client.SetTransport(transport)
	return client
}

// schemeOf returns rawURL's scheme ("http" or "https"), defaulting to
// "https" for a malformed URL since that yields the more conservative
// (443) bind port.
func schemeOf(rawURL string) string {
	scheme, _, ok := urlutil.SplitSchemeHost(rawURL)
	if !ok {
		return "https"
	}
	return scheme
}

// fetch streams rawURL's body into dst, enforcing maxFileSize (a negative
// value disables the check) and timeout. On success dst has received every
// byte of the body and the written count is returned.
func (r *remoteReader) fetch(ctx context.Context, rawURL string, timeout time.Duration, maxFileSize int64, dst *os.File) (int64, error) {
	logFetchStart(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlutil.Sanitize(rawURL), nil)
	if err != nil {
		return 0, err
	}

	resp, err := r.httpClient(timeout, schemeOf(rawURL)).Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeoutErr(err) {
			return 0, newError(KindSourceTimeout, rawURL, err)
		}
		return 0, newError(KindFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, newError(KindFetchFailed, rawURL, errBadStatus(resp.StatusCode))
	}

	n, err := copyWithLimit(dst, resp.Body, maxFileSize)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return n, newError(KindFileTooLarge, rawURL, err)
		}
		if isTimeoutErr(err) {
			return n, newError(KindSourceTimeout, rawURL, err)
		}
		return n, newError(KindFetchFailed, rawURL, err)
	}
	return n, nil
}

// openStream opens a direct, non-pinning read stream on rawURL for
// GetStream's remote-bypass path. No byte limit is enforced here: the
// caller accepts a best-effort view and nothing is written to the cache.
func (r *remoteReader) openStream(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlutil.Sanitize(rawURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient(timeout, schemeOf(rawURL)).Do(req)
	if err != nil {
		return nil, newError(KindFetchFailed, rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, newError(KindFetchFailed, rawURL, errBadStatus(resp.StatusCode))
	}
	return resp.Body, nil
}

// probe issues a HEAD request and evaluates it against the mime/size policy,
// for the Exists() surface.
func (r *remoteReader) probe(ctx context.Context, rawURL string, timeout time.Duration, cfg Config) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, urlutil.Sanitize(rawURL), nil)
	if err != nil {
		return false, err
	}

	resp, err := r.httpClient(timeout, schemeOf(rawURL)).Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return false, newError(KindSourceTimeout, rawURL, err)
		}
		return false, newError(KindFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}

	if mt := resp.Header.Get("Content-Type"); !cfg.mimeAllowed(stripMimeParams(mt)) {
		return false, newError(KindDisallowedMime, rawURL, errDisallowedMime(mt))
	}

	if cfg.MaxFileSize >= 0 && resp.ContentLength > int64(cfg.MaxFileSize) {
		return false, newError(KindFileTooLarge, rawURL, errTooLarge)
	}

	return true, nil
}

func isTimeoutErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

func logFetchStart(url string) {
	logging.Debugf("fetching %s", url)
}
