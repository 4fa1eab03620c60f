// Package databricks implements a minimal Workspace Files object client:
// enough to stat, check existence, and read an object's bytes (preferring a
// signed URL, falling back to workspace.Export), fronted by a short-lived
// object-info cache. Mutating operations (write, delete, rename, mkdir)
// lived here in an earlier iteration of this client but have no caller in a
// read-only object-storage disk and were removed.
package databricks

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/client"
	"github.com/databricks/databricks-sdk-go/service/workspace"

	"filecache/internal/logging"
	cache "filecache/internal/metacache"
)

// WSFileInfo adapts a Workspace Files object-info response to fs.FileInfo,
// additionally carrying the signed URL (if any) the API handed back for
// direct reads.
type WSFileInfo struct {
	workspace.ObjectInfo
	SignedURL        string
	SignedURLHeaders map[string]string
}

func (info WSFileInfo) Name() string { return path.Base(info.Path) }
func (info WSFileInfo) Size() int64  { return info.ObjectInfo.Size }

func (info WSFileInfo) Mode() fs.FileMode {
	switch info.ObjectType {
	case workspace.ObjectTypeDirectory, workspace.ObjectTypeRepo:
		return fs.ModeDir | 0755
	default:
		return 0644
	}
}

func (info WSFileInfo) ModTime() time.Time { return time.UnixMilli(info.ModifiedAt) }

func (info WSFileInfo) IsDir() bool {
	return info.ObjectType == workspace.ObjectTypeDirectory || info.ObjectType == workspace.ObjectTypeRepo
}

func (info WSFileInfo) Sys() any { return info.ObjectInfo }

type wsfsObjectInfo struct {
	ObjectInfo workspace.ObjectInfo `json:"object_info"`
	SignedURL  *struct {
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers,omitempty"`
	} `json:"signed_url,omitempty"`
}

type objectInfoResponse struct {
	WsfsObjectInfo wsfsObjectInfo `json:"wsfs_object_info"`
}

// apiDoer is the subset of the Databricks API client WorkspaceFilesClient
// needs, narrowed for testability.
type apiDoer interface {
	Do(ctx context.Context, method, path string,
		headers map[string]string, queryParams map[string]any, request, response any,
		visitors ...func(*http.Request) error) error
}

// workspaceClient is a thin interface over workspace.WorkspaceInterface,
// narrowed to the single call (Export) this client still uses as its
// signed-URL fallback.
type workspaceClient interface {
	Export(ctx context.Context, request workspace.ExportRequest) (*workspace.ExportResponse, error)
}

// WorkspaceFilesClient resolves and reads objects from a Databricks
// Workspace Files tree, caching object-info lookups for a short TTL.
type WorkspaceFilesClient struct {
	workspaceClient workspaceClient
	apiClient       apiDoer
	cache           *cache.Cache[WSFileInfo]
}

// NewWorkspaceFilesClient builds a client from a live Databricks SDK
// workspace client.
func NewWorkspaceFilesClient(w *databricks.WorkspaceClient) (*WorkspaceFilesClient, error) {
	databricksClient, err := client.New(w.Config)
	if err != nil {
		return nil, err
	}
	return NewWorkspaceFilesClientWithDeps(w.Workspace, databricksClient, nil), nil
}

// NewWorkspaceFilesClientWithDeps builds a client from injectable
// dependencies, for testing without a live SDK client.
func NewWorkspaceFilesClientWithDeps(workspaceClient workspaceClient, apiClient apiDoer, c *cache.Cache[WSFileInfo]) *WorkspaceFilesClient {
	if c == nil {
		c = cache.NewCache[WSFileInfo](60 * time.Second)
	}
	return &WorkspaceFilesClient{
		workspaceClient: workspaceClient,
		apiClient:       apiClient,
		cache:           c,
	}
}

// Stat resolves filePath's object info, consulting the cache first.
func (c *WorkspaceFilesClient) Stat(ctx context.Context, filePath string) (fs.FileInfo, error) {
	if info, ok := c.cache.Get(filePath); ok {
		if info == nil {
			return nil, fs.ErrNotExist
		}
		return *info, nil
	}

	var resp objectInfoResponse
	urlPath := fmt.Sprintf(
		"/api/2.0/workspace-files/object-info?path=%s",
		url.QueryEscape(filePath),
	)

	err := c.apiClient.Do(ctx, http.MethodGet, urlPath, nil, nil, nil, &resp)
	if err != nil {
		c.cache.Set(filePath, nil)
		return nil, err
	}

	apiInfo := WSFileInfo{ObjectInfo: resp.WsfsObjectInfo.ObjectInfo}
	if resp.WsfsObjectInfo.SignedURL != nil {
		apiInfo.SignedURL = resp.WsfsObjectInfo.SignedURL.URL
		apiInfo.SignedURLHeaders = resp.WsfsObjectInfo.SignedURL.Headers
	}
	c.cache.Set(filePath, &apiInfo)
	return apiInfo, nil
}

func (c *WorkspaceFilesClient) readViaSignedURL(ctx context.Context, signedURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signed URL GET failed with status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ReadAll reads an object's full contents, preferring the signed URL handed
// back by Stat and falling back to workspace.Export when that fails.
func (c *WorkspaceFilesClient) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	info, err := c.Stat(ctx, filePath)
	if err != nil {
		return nil, err
	}
	wsInfo := info.(WSFileInfo)

	if wsInfo.SignedURL != "" {
		data, err := c.readViaSignedURL(ctx, wsInfo.SignedURL, wsInfo.SignedURLHeaders)
		if err == nil {
			logging.Debugf("read via signed URL succeeded for path: %s", filePath)
			return data, nil
		}
		logging.Debugf("read via signed URL failed for path: %s, falling back to Export: %v", filePath, err)
	}

	resp, err := c.workspaceClient.Export(ctx, workspace.ExportRequest{
		Path:   filePath,
		Format: workspace.ExportFormatSource,
	})
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.Content)
}

// Exists reports whether filePath resolves to an object.
func (c *WorkspaceFilesClient) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.Stat(ctx, path)
	if err != nil {
		return false, err
	}
	return true, nil
}
