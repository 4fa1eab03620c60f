package filecache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeDisk is a minimal in-memory Disk used to exercise the registry and
// retrieve/source-reader paths without touching a real backend.
type fakeDisk struct {
	name      string
	driver    DriverKind
	prefix    string
	objects   map[string][]byte
	mime      string
	failStat  bool
}

func (d *fakeDisk) Name() string       { return d.name }
func (d *fakeDisk) Driver() DriverKind { return d.driver }
func (d *fakeDisk) PathPrefix() (string, bool) {
	if d.driver == DriverLocal {
		return d.prefix, true
	}
	return "", false
}

func (d *fakeDisk) OpenReadStream(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	data, ok := d.objects[objectPath]
	if !ok {
		return nil, errObjectNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (d *fakeDisk) Exists(ctx context.Context, objectPath string) (bool, error) {
	if d.failStat {
		return false, errors.New("stat failure")
	}
	_, ok := d.objects[objectPath]
	return ok, nil
}

func (d *fakeDisk) MimeType(ctx context.Context, objectPath string) (string, error) {
	return d.mime, nil
}

func (d *fakeDisk) Size(ctx context.Context, objectPath string) (int64, error) {
	data, ok := d.objects[objectPath]
	if !ok {
		return -1, errObjectNotFound
	}
	return int64(len(data)), nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	d := &fakeDisk{name: "photos", driver: DriverRemote}
	reg.Register(d)

	got, ok := reg.Lookup("photos")
	if !ok || got.Name() != "photos" {
		t.Fatalf("Lookup(photos) = %v, %v", got, ok)
	}

	if _, ok := reg.Lookup("missing"); ok {
		t.Fatal("expected Lookup to report false for an unregistered disk")
	}
}

func TestLoadRegistryFromINILocalDisk(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "disks.ini")

	localBuilderCalled := false
	RegisterDiskBuilder("local-test-probe", func(name, path, bucket, region, prefix string) (Disk, error) {
		localBuilderCalled = true
		return &fakeDisk{name: name, driver: DriverLocal, prefix: path}, nil
	})

	contents := `[disk "photos"]
driver = local-test-probe
path = /srv/photos
`
	if err := os.WriteFile(iniPath, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFromINI(iniPath)
	if err != nil {
		t.Fatalf("LoadRegistryFromINI: %v", err)
	}
	if !localBuilderCalled {
		t.Fatal("expected the registered builder to be invoked")
	}

	disk, ok := reg.Lookup("photos")
	if !ok {
		t.Fatal("expected photos disk to be registered")
	}
	prefix, ok := disk.PathPrefix()
	if !ok || prefix != "/srv/photos" {
		t.Fatalf("PathPrefix() = %q, %v", prefix, ok)
	}
}

func TestLoadRegistryFromINIUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "disks.ini")
	contents := `[disk "mystery"]
driver = does-not-exist
`
	if err := os.WriteFile(iniPath, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistryFromINI(iniPath); err == nil {
		t.Fatal("expected an error for an unregistered driver name")
	}
}

func TestParseDiskSectionName(t *testing.T) {
	cases := []struct {
		section  string
		wantName string
		wantOK   bool
	}{
		{`disk "photos"`, "photos", true},
		{"DEFAULT", "", false},
		{"unrelated", "", false},
	}
	for _, tc := range cases {
		name, ok := parseDiskSectionName(tc.section)
		if name != tc.wantName || ok != tc.wantOK {
			t.Errorf("parseDiskSectionName(%q) = %q, %v; want %q, %v", tc.section, name, ok, tc.wantName, tc.wantOK)
		}
	}
}
