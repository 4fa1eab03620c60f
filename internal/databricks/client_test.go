package databricks

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/databricks/databricks-sdk-go/service/workspace"
)

func TestStatCaching(t *testing.T) {
	callCount := 0
	mockAPI := &MockAPIClient{
		DoFunc: func(ctx context.Context, method, path string,
			headers map[string]string, queryParams map[string]any, request, response any,
			visitors ...func(*http.Request) error) error {
			callCount++
			if strings.Contains(path, "object-info") {
				resp := response.(*objectInfoResponse)
				resp.WsfsObjectInfo = wsfsObjectInfo{
					ObjectInfo: workspace.ObjectInfo{
						Path:       "/test.txt",
						ObjectType: workspace.ObjectTypeFile,
						Size:       100,
						ModifiedAt: time.Now().UnixMilli(),
					},
				}
				return nil
			}
			return fmt.Errorf("unexpected path: %s", path)
		},
	}

	client := NewWorkspaceFilesClientWithDeps(&MockWorkspaceClient{}, mockAPI, nil)

	info1, err := client.Stat(context.Background(), "/test.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 API call, got %d", callCount)
	}

	info2, err := client.Stat(context.Background(), "/test.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 API call (cached), got %d", callCount)
	}

	if info1.Name() != info2.Name() || info1.Size() != info2.Size() {
		t.Errorf("Cached result differs from original")
	}
}

func TestStatNotFound(t *testing.T) {
	callCount := 0
	mockAPI := &MockAPIClient{
		DoFunc: func(ctx context.Context, method, path string,
			headers map[string]string, queryParams map[string]any, request, response any,
			visitors ...func(*http.Request) error) error {
			callCount++
			return fs.ErrNotExist
		},
	}

	client := NewWorkspaceFilesClientWithDeps(&MockWorkspaceClient{}, mockAPI, nil)

	_, err1 := client.Stat(context.Background(), "/nonexistent.txt")
	if err1 == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 API call, got %d", callCount)
	}

	_, err2 := client.Stat(context.Background(), "/nonexistent.txt")
	if err2 == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 API call (cached error), got %d", callCount)
	}
}

func TestReadAllViaSignedURL(t *testing.T) {
	testContent := []byte("test content via signed URL")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.Header.Get("X-Test-Header") != "test-value" {
			t.Errorf("Expected custom header, got %s", r.Header.Get("X-Test-Header"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write(testContent)
	}))
	defer server.Close()

	mockAPI := &MockAPIClient{
		DoFunc: func(ctx context.Context, method, path string,
			headers map[string]string, queryParams map[string]any, request, response any,
			visitors ...func(*http.Request) error) error {
			if strings.Contains(path, "object-info") {
				resp := response.(*objectInfoResponse)
				resp.WsfsObjectInfo = wsfsObjectInfo{
					ObjectInfo: workspace.ObjectInfo{
						Path:       "/test.txt",
						ObjectType: workspace.ObjectTypeFile,
						Size:       int64(len(testContent)),
						ModifiedAt: time.Now().UnixMilli(),
					},
					SignedURL: &struct {
						URL     string            `json:"url"`
						Headers map[string]string `json:"headers,omitempty"`
					}{
						URL:     server.URL,
						Headers: map[string]string{"X-Test-Header": "test-value"},
					},
				}
				return nil
			}
			return fmt.Errorf("unexpected path: %s", path)
		},
	}

	client := NewWorkspaceFilesClientWithDeps(&MockWorkspaceClient{}, mockAPI, nil)

	data, err := client.ReadAll(context.Background(), "/test.txt")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if string(data) != string(testContent) {
		t.Errorf("Expected content %q, got %q", string(testContent), string(data))
	}
}

func TestReadAllFallbackToExport(t *testing.T) {
	testContent := []byte("test content via Export")
	contentB64 := base64.StdEncoding.EncodeToString(testContent)

	signedURLCalled := false
	exportCalled := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signedURLCalled = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	mockAPI := &MockAPIClient{
		DoFunc: func(ctx context.Context, method, path string,
			headers map[string]string, queryParams map[string]any, request, response any,
			visitors ...func(*http.Request) error) error {
			if strings.Contains(path, "object-info") {
				resp := response.(*objectInfoResponse)
				resp.WsfsObjectInfo = wsfsObjectInfo{
					ObjectInfo: workspace.ObjectInfo{
						Path:       "/test.txt",
						ObjectType: workspace.ObjectTypeFile,
						Size:       int64(len(testContent)),
						ModifiedAt: time.Now().UnixMilli(),
					},
					SignedURL: &struct {
						URL     string            `json:"url"`
						Headers map[string]string `json:"headers,omitempty"`
					}{
						URL:     server.URL,
						Headers: map[string]string{},
					},
				}
				return nil
			}
			return fmt.Errorf("unexpected path: %s", path)
		},
	}

	mockWorkspace := &MockWorkspaceClient{
		ExportFunc: func(ctx context.Context, request workspace.ExportRequest) (*workspace.ExportResponse, error) {
			exportCalled = true
			return &workspace.ExportResponse{
				Content: contentB64,
			}, nil
		},
	}

	client := NewWorkspaceFilesClientWithDeps(mockWorkspace, mockAPI, nil)

	data, err := client.ReadAll(context.Background(), "/test.txt")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if !signedURLCalled {
		t.Error("Expected signed URL to be called")
	}
	if !exportCalled {
		t.Error("Expected Export fallback to be called")
	}
	if string(data) != string(testContent) {
		t.Errorf("Expected content %q, got %q", string(testContent), string(data))
	}
}

func TestWSFileInfoImplementsFileInfo(t *testing.T) {
	now := time.Now()
	info := WSFileInfo{
		ObjectInfo: workspace.ObjectInfo{
			Path:       "/test/file.txt",
			ObjectType: workspace.ObjectTypeFile,
			Size:       1234,
			ModifiedAt: now.UnixMilli(),
		},
	}

	if info.Name() != "file.txt" {
		t.Errorf("Expected name 'file.txt', got %q", info.Name())
	}
	if info.Size() != 1234 {
		t.Errorf("Expected size 1234, got %d", info.Size())
	}
	if info.IsDir() {
		t.Error("File should not be a directory")
	}
	if info.Mode() != 0644 {
		t.Errorf("Expected mode 0644, got %o", info.Mode())
	}

	modTime := info.ModTime()
	if modTime.Sub(now) > time.Second || now.Sub(modTime) > time.Second {
		t.Errorf("Expected ModTime close to %v, got %v", now, modTime)
	}
}

func TestWSFileInfoDirectory(t *testing.T) {
	dirInfo := WSFileInfo{
		ObjectInfo: workspace.ObjectInfo{
			Path:       "/test/dir",
			ObjectType: workspace.ObjectTypeDirectory,
			ModifiedAt: time.Now().UnixMilli(),
		},
	}

	if !dirInfo.IsDir() {
		t.Error("Directory should be a directory")
	}
	if dirInfo.Mode()&fs.ModeDir == 0 {
		t.Error("Directory mode should include ModeDir flag")
	}

	repoInfo := WSFileInfo{
		ObjectInfo: workspace.ObjectInfo{
			Path:       "/test/repo",
			ObjectType: workspace.ObjectTypeRepo,
			ModifiedAt: time.Now().UnixMilli(),
		},
	}

	if !repoInfo.IsDir() {
		t.Error("Repo should be treated as a directory")
	}
}

func TestExists(t *testing.T) {
	mockAPI := &MockAPIClient{
		DoFunc: func(ctx context.Context, method, path string,
			headers map[string]string, queryParams map[string]any, request, response any,
			visitors ...func(*http.Request) error) error {
			if strings.Contains(path, "file.txt") {
				resp := response.(*objectInfoResponse)
				resp.WsfsObjectInfo = wsfsObjectInfo{
					ObjectInfo: workspace.ObjectInfo{
						Path:       "/test/file.txt",
						ObjectType: workspace.ObjectTypeFile,
						Size:       100,
						ModifiedAt: time.Now().UnixMilli(),
					},
				}
				return nil
			}
			return fs.ErrNotExist
		},
	}

	client := NewWorkspaceFilesClientWithDeps(&MockWorkspaceClient{}, mockAPI, nil)

	exists, err := client.Exists(context.Background(), "/test/file.txt")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("File should exist")
	}

	if _, err := client.Exists(context.Background(), "/test/nonexistent"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func BenchmarkStatWithCache(b *testing.B) {
	mockAPI := &MockAPIClient{
		DoFunc: func(ctx context.Context, method, path string,
			headers map[string]string, queryParams map[string]any, request, response any,
			visitors ...func(*http.Request) error) error {
			resp := response.(*objectInfoResponse)
			resp.WsfsObjectInfo = wsfsObjectInfo{
				ObjectInfo: workspace.ObjectInfo{
					Path:       "/test.txt",
					ObjectType: workspace.ObjectTypeFile,
					Size:       100,
					ModifiedAt: time.Now().UnixMilli(),
				},
			}
			return nil
		},
	}

	client := NewWorkspaceFilesClientWithDeps(&MockWorkspaceClient{}, mockAPI, nil)
	client.Stat(context.Background(), "/test.txt")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client.Stat(context.Background(), "/test.txt")
	}
}
