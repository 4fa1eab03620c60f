package filecache

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCopyWithLimitUnderLimit(t *testing.T) {
	var dst bytes.Buffer
	n, err := copyWithLimit(&dst, strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("copyWithLimit: %v", err)
	}
	if n != 5 || dst.String() != "hello" {
		t.Fatalf("got n=%d, dst=%q", n, dst.String())
	}
}

func TestCopyWithLimitExactlyAtLimitIsRejected(t *testing.T) {
	// A source exactly maxFileSize bytes long is conservatively treated as
	// too large, matching the overflow detector's >= comparison.
	var dst bytes.Buffer
	data := strings.Repeat("x", 10)
	_, err := copyWithLimit(&dst, strings.NewReader(data), 10)
	if !errors.Is(err, errTooLarge) {
		t.Fatalf("expected errTooLarge for a source exactly at the limit, got %v", err)
	}
}

func TestCopyWithLimitOverLimit(t *testing.T) {
	var dst bytes.Buffer
	data := strings.Repeat("x", 11)
	_, err := copyWithLimit(&dst, strings.NewReader(data), 10)
	if !errors.Is(err, errTooLarge) {
		t.Fatalf("expected errTooLarge, got %v", err)
	}
}

func TestCopyWithLimitNegativeDisablesCap(t *testing.T) {
	var dst bytes.Buffer
	data := strings.Repeat("x", 1<<20)
	n, err := copyWithLimit(&dst, strings.NewReader(data), -1)
	if err != nil {
		t.Fatalf("copyWithLimit: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("n = %d, want %d", n, len(data))
	}
}

func TestStripMimeParams(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"text/html; charset=utf-8", "text/html"},
		{"image/png", "image/png"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stripMimeParams(tc.in); got != tc.want {
			t.Errorf("stripMimeParams(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
