package diskdrv

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path/filepath"

	dbx "github.com/databricks/databricks-sdk-go"

	"filecache"
	"filecache/internal/databricks"
)

// DatabricksDisk backs filecache's DiskReader path with objects in a
// Databricks Workspace Files tree, via the signed-URL-first read path
// internal/databricks.WorkspaceFilesClient already implements.
type DatabricksDisk struct {
	name   string
	client databricks.WorkspaceFilesAPI
}

// NewDatabricksDisk wraps a live Databricks SDK workspace client as a named
// disk. Registered programmatically (not via the ini registry loader)
// because it needs a live SDK client, not just static configuration.
func NewDatabricksDisk(name string, w *dbx.WorkspaceClient) (*DatabricksDisk, error) {
	client, err := databricks.NewWorkspaceFilesClient(w)
	if err != nil {
		return nil, err
	}
	return &DatabricksDisk{name: name, client: client}, nil
}

// NewDatabricksDiskWithClient wraps an already-constructed
// WorkspaceFilesAPI, for tests that want to inject a fake.
func NewDatabricksDiskWithClient(name string, client databricks.WorkspaceFilesAPI) *DatabricksDisk {
	return &DatabricksDisk{name: name, client: client}
}

func (d *DatabricksDisk) Name() string                { return d.name }
func (d *DatabricksDisk) Driver() filecache.DriverKind { return filecache.DriverRemote }
func (d *DatabricksDisk) PathPrefix() (string, bool)  { return "", false }

func (d *DatabricksDisk) OpenReadStream(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	data, err := d.client.ReadAll(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *DatabricksDisk) Exists(ctx context.Context, objectPath string) (bool, error) {
	return d.client.Exists(ctx, objectPath)
}

func (d *DatabricksDisk) MimeType(ctx context.Context, objectPath string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(objectPath)); t != "" {
		return t, nil
	}
	return "", nil
}

func (d *DatabricksDisk) Size(ctx context.Context, objectPath string) (int64, error) {
	info, err := d.client.Stat(ctx, objectPath)
	if err != nil {
		return -1, err
	}
	return info.Size(), nil
}
