package filecache

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gopkg.in/ini.v1"
)

// DriverKind distinguishes disks whose objects live on the local filesystem
// (files are referenced in place, never copied into the cache) from disks
// whose objects must be streamed through the cache (object storage, remote
// workspaces).
type DriverKind int

const (
	// DriverLocal disks back LocalResolver: PathPrefix + object_path is an
	// absolute path on the same host, no bytes are streamed.
	DriverLocal DriverKind = iota
	// DriverRemote disks back DiskReader: bytes must be streamed through
	// OpenReadStream into the cache entry.
	DriverRemote
)

// Disk is the named-disk registry's per-disk capability set. The cache
// treats every non-local disk the same way regardless of what backs it
// (S3, Databricks Workspace Files, or anything else implementing this
// interface).
type Disk interface {
	// Name is the registry key this disk was registered under.
	Name() string
	// Driver reports whether this disk is local or remote.
	Driver() DriverKind
	// OpenReadStream opens a byte stream for objectPath. Only called for
	// DriverRemote disks.
	OpenReadStream(ctx context.Context, objectPath string) (io.ReadCloser, error)
	// Exists reports whether objectPath is present on the disk.
	Exists(ctx context.Context, objectPath string) (bool, error)
	// MimeType returns the disk's best knowledge of objectPath's content
	// type, or "" if it has none.
	MimeType(ctx context.Context, objectPath string) (string, error)
	// Size returns the object's size in bytes, or -1 if unknown.
	Size(ctx context.Context, objectPath string) (int64, error)
	// PathPrefix returns the local directory this disk is rooted at and
	// true, for DriverLocal disks. Remote disks return ("", false).
	PathPrefix() (string, bool)
}

// Registry resolves disk names to Disk implementations. It is read-only
// once built, so concurrent Lookup calls need no locking beyond what sync.Map
// or a guarded map already provides; we use a plain mutex since disks are
// normally registered once at startup.
type Registry struct {
	mu    sync.RWMutex
	disks map[string]Disk
}

// NewRegistry returns an empty disk registry.
func NewRegistry() *Registry {
	return &Registry{disks: make(map[string]Disk)}
}

// Register adds or replaces a disk under its own Name().
func (r *Registry) Register(d Disk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disks[d.Name()] = d
}

// Lookup returns the disk registered under name, or false if absent.
func (r *Registry) Lookup(name string) (Disk, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.disks[name]
	return d, ok
}

// iniDiskSection is the shape of a [disk "name"] section in a registry
// config file: driver selects the concrete implementation, the remaining
// fields are driver-specific.
type iniDiskSection struct {
	Driver string
	Path   string // local
	Bucket string // s3
	Region string // s3
	Prefix string // s3 object-key prefix
}

// LoadRegistryFromINI builds a Registry from an .ini file whose sections are
// named disk "name" (the ini package's quoted-subsection convention). Only
// drivers expressible as static configuration (local, s3) are built here;
// disks that need a live SDK client (databricks) must be Register()ed by the
// caller after construction.
func LoadRegistryFromINI(path string) (*Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("filecache: loading disk registry %s: %w", path, err)
	}

	reg := NewRegistry()
	for _, section := range cfg.Sections() {
		name, ok := parseDiskSectionName(section.Name())
		if !ok {
			continue
		}

		var sec iniDiskSection
		if err := section.MapTo(&sec); err != nil {
			return nil, fmt.Errorf("filecache: disk %q: %w", name, err)
		}

		disk, err := buildDiskFromINI(name, sec)
		if err != nil {
			return nil, err
		}
		reg.Register(disk)
	}
	return reg, nil
}

// parseDiskSectionName extracts "name" out of a `disk "name"` ini section
// header. DEFAULT and any unrelated section are ignored.
func parseDiskSectionName(section string) (string, bool) {
	const prefix = `disk "`
	if len(section) < len(prefix)+1 || section[:len(prefix)] != prefix || section[len(section)-1] != '"' {
		return "", false
	}
	return section[len(prefix) : len(section)-1], true
}

// diskBuilders maps ini driver names to constructors. It starts empty: the
// core package knows no driver kind of its own, to avoid an import cycle
// with diskdrv (which depends on filecache's Disk interface). The diskdrv
// package fills it from its init functions via RegisterDiskBuilder.
var diskBuilders = map[string]func(name string, sec iniDiskSection) (Disk, error){}

// RegisterDiskBuilder lets a disk-driver package (diskdrv) teach
// LoadRegistryFromINI how to construct its driver from an ini section,
// without filecache importing diskdrv.
func RegisterDiskBuilder(driver string, build func(name, path, bucket, region, prefix string) (Disk, error)) {
	diskBuilders[driver] = func(name string, sec iniDiskSection) (Disk, error) {
		return build(name, sec.Path, sec.Bucket, sec.Region, sec.Prefix)
	}
}

func buildDiskFromINI(name string, sec iniDiskSection) (Disk, error) {
	build, ok := diskBuilders[sec.Driver]
	if !ok {
		return nil, fmt.Errorf("filecache: disk %q: unknown driver %q", name, sec.Driver)
	}
	return build(name, sec)
}
