package fsview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"

	"filecache"
)

func TestFileNodeOpenAndReadFetchesAndBuffers(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("hello from fsview"))
	}))
	defer server.Close()

	cache := filecache.New(filecache.Config{Path: t.TempDir(), MaxFileSize: -1}, nil)
	n := &FileNode{cache: cache, file: filecache.NewFile(server.URL+"/a.txt", "")}

	if _, _, errno := n.Open(context.Background(), syscall.O_RDONLY); errno != 0 {
		t.Fatalf("Open: errno %d", errno)
	}

	dest := make([]byte, 5)
	res, errno := n.Read(context.Background(), nil, dest, 0)
	if errno != 0 {
		t.Fatalf("Read: errno %d", errno)
	}
	buf, _ := res.Bytes(dest)
	if string(buf) != "hello" {
		t.Fatalf("got %q", buf)
	}

	if hits != 1 {
		t.Fatalf("expected exactly 1 upstream fetch, got %d", hits)
	}
}

func TestFileNodeOpenRejectsWrite(t *testing.T) {
	cache := filecache.New(filecache.Config{Path: t.TempDir(), MaxFileSize: -1}, nil)
	n := &FileNode{cache: cache, file: filecache.NewFile("https://example.com/x", "")}

	if _, _, errno := n.Open(context.Background(), syscall.O_RDWR); errno != syscall.EROFS {
		t.Fatalf("expected EROFS, got %d", errno)
	}
}

func TestFileNodeReleaseDropsBuffer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	cache := filecache.New(filecache.Config{Path: t.TempDir(), MaxFileSize: -1}, nil)
	n := &FileNode{cache: cache, file: filecache.NewFile(server.URL+"/a.txt", "")}

	if _, _, errno := n.Open(context.Background(), syscall.O_RDONLY); errno != 0 {
		t.Fatalf("Open: errno %d", errno)
	}
	if n.data == nil {
		t.Fatal("expected data to be buffered after Open")
	}

	if errno := n.Release(context.Background(), nil); errno != 0 {
		t.Fatalf("Release: errno %d", errno)
	}
	if n.data != nil {
		t.Fatal("expected Release to drop the buffer")
	}
}

func TestFileNodeGetattrReportsKnownSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1234567"))
	}))
	defer server.Close()

	cache := filecache.New(filecache.Config{Path: t.TempDir(), MaxFileSize: -1}, nil)
	n := &FileNode{cache: cache, file: filecache.NewFile(server.URL+"/a.txt", "")}

	if _, _, errno := n.Open(context.Background(), syscall.O_RDONLY); errno != 0 {
		t.Fatalf("Open: errno %d", errno)
	}

	out := &fuse.AttrOut{}
	errno := n.Getattr(context.Background(), nil, out)
	if errno != 0 {
		t.Fatalf("Getattr: errno %d", errno)
	}
	if out.Size != 7 {
		t.Fatalf("expected size 7, got %d", out.Size)
	}
}

func TestFileNodeOpenSurfacesFetchFailedAsEIO(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := filecache.New(filecache.Config{Path: t.TempDir(), MaxFileSize: -1}, nil)
	n := &FileNode{cache: cache, file: filecache.NewFile(server.URL+"/a.txt", "")}

	_, _, errno := n.Open(context.Background(), syscall.O_RDONLY)
	if errno != syscall.EIO {
		t.Fatalf("expected EIO, got %d", errno)
	}
}
