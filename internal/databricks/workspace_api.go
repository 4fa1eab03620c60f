package databricks

import (
	"context"
	"io/fs"
)

// WorkspaceFilesAPI defines the read-only surface a disk driver needs from
// a Workspace Files client, letting callers depend on an interface instead
// of the concrete *WorkspaceFilesClient.
type WorkspaceFilesAPI interface {
	Stat(ctx context.Context, filePath string) (fs.FileInfo, error)
	ReadAll(ctx context.Context, filePath string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

var _ WorkspaceFilesAPI = (*WorkspaceFilesClient)(nil)
