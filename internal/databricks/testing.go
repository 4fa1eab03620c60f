package databricks

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/databricks/databricks-sdk-go/service/workspace"
)

// MockWorkspaceClient is a test double for the workspaceClient interface —
// only Export is implemented, since that's the only method this client
// still calls.
type MockWorkspaceClient struct {
	ExportFunc func(ctx context.Context, request workspace.ExportRequest) (*workspace.ExportResponse, error)
}

func (m *MockWorkspaceClient) Export(ctx context.Context, request workspace.ExportRequest) (*workspace.ExportResponse, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, request)
	}
	return nil, fmt.Errorf("not implemented")
}

// MockAPIClient is a test double for apiDoer.
type MockAPIClient struct {
	DoFunc func(ctx context.Context, method, path string,
		headers map[string]string, queryParams map[string]any, request, response any,
		visitors ...func(*http.Request) error) error
}

func (m *MockAPIClient) Do(ctx context.Context, method, path string,
	headers map[string]string, queryParams map[string]any, request, response any,
	visitors ...func(*http.Request) error) error {
	if m.DoFunc != nil {
		return m.DoFunc(ctx, method, path, headers, queryParams, request, response, visitors...)
	}
	return fmt.Errorf("not implemented")
}

// NewTestFileInfo builds a WSFileInfo for tests without going through the API.
func NewTestFileInfo(path string, size int64, isDir bool) WSFileInfo {
	objType := workspace.ObjectTypeFile
	if isDir {
		objType = workspace.ObjectTypeDirectory
	}

	return WSFileInfo{
		ObjectInfo: workspace.ObjectInfo{
			Path:       path,
			ObjectType: objType,
			Size:       size,
			ModifiedAt: time.Now().UnixMilli(),
		},
	}
}

// NewTestFileInfoWithSignedURL is NewTestFileInfo plus a signed-URL/headers pair.
func NewTestFileInfoWithSignedURL(path string, size int64, url string, headers map[string]string) WSFileInfo {
	info := NewTestFileInfo(path, size, false)
	info.SignedURL = url
	info.SignedURLHeaders = headers
	return info
}

var _ fs.FileInfo = WSFileInfo{}
