// Package configfs implements the atomic JSON CRUD and symlink secondary
// index that the control plane uses to persist accounts, buckets, access
// keys, and the system document directly on a POSIX directory tree — no
// database, no network round trip, just files a cluster administrator can
// inspect with ls and cat.
//
// Every create and update goes through a write-temp, fsync-temp,
// rename-into-place sequence so a reader never observes a partially
// written file: the rename is the only operation that makes a change
// visible, and POSIX rename(2) within one directory is atomic. Deletes are
// a plain remove. BackendGPFS replaces the rename with an unlink+link
// sequence (see doc.go).
package configfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Sentinel errors returned by ConfigFS operations. Callers should use
// errors.Is against these rather than matching strings.
var (
	ErrNotFound      = errors.New("configfs: not found")
	ErrAlreadyExists = errors.New("configfs: already exists")
	ErrCorrupted     = errors.New("configfs: file corrupted")
)

// Backend selects the atomic-replace strategy ConfigFS uses when moving a
// temp file into place.
type Backend string

const (
	// BackendNone uses a plain os.Rename, suitable for local and most
	// networked POSIX filesystems (NFS, most clustered filesystems).
	BackendNone Backend = "none"

	// BackendGPFS emulates GPFS's preference for an explicit unlink+link
	// sequence in place of the rename, approximating (not guaranteeing) the
	// replace semantics GPFS clusters expect from cooperating writers. See
	// doc.go for the caveats of this emulation.
	BackendGPFS Backend = "gpfs"
)

// Dir identifies one of the fixed subdirectories under a config root.
type Dir string

const (
	AccountsDir   Dir = "accounts"
	BucketsDir    Dir = "buckets"
	AccessKeysDir Dir = "access_keys"
)

// SystemFile is the name of the system document stored directly under the
// config root (not inside one of the Dir subdirectories).
const SystemFile = "system.json"

// ConfigFS is a handle on a config root directory tree.
type ConfigFS struct {
	root    string
	backend Backend
}

// New returns a ConfigFS rooted at root, creating the accounts/, buckets/
// and access_keys/ subdirectories if they do not already exist.
func New(root string, backend Backend) (*ConfigFS, error) {
	if root == "" {
		return nil, fmt.Errorf("configfs: empty root")
	}
	c := &ConfigFS{root: root, backend: backend}
	for _, d := range []Dir{AccountsDir, BucketsDir, AccessKeysDir} {
		if err := os.MkdirAll(c.dirPath(d), 0700); err != nil {
			return nil, fmt.Errorf("configfs: create %s: %w", d, err)
		}
	}
	return c, nil
}

// Root returns the config root directory.
func (c *ConfigFS) Root() string { return c.root }

// Backend returns the configured atomic-replace backend.
func (c *ConfigFS) Backend() Backend { return c.backend }

func (c *ConfigFS) dirPath(d Dir) string {
	return filepath.Join(c.root, string(d))
}

func (c *ConfigFS) filePath(d Dir, name string) string {
	return filepath.Join(c.dirPath(d), name+".json")
}

// CreateConfigFile writes data as name.json under dir. It fails with
// ErrAlreadyExists if the file already exists.
func (c *ConfigFS) CreateConfigFile(d Dir, name string, data []byte) error {
	path := c.filePath(d, name)
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrAlreadyExists)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("configfs: stat %s: %w", path, err)
	}
	return c.atomicWrite(path, data)
}

// UpdateConfigFile overwrites name.json under dir. It fails with
// ErrNotFound if the file does not already exist.
func (c *ConfigFS) UpdateConfigFile(d Dir, name string, data []byte) error {
	path := c.filePath(d, name)
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("configfs: stat %s: %w", path, err)
	}
	return c.atomicWrite(path, data)
}

// ReadConfigFile reads name.json under dir.
func (c *ConfigFS) ReadConfigFile(d Dir, name string) ([]byte, error) {
	path := c.filePath(d, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("configfs: read %s: %w", path, err)
	}
	return data, nil
}

// DeleteConfigFile removes name.json under dir. Idempotent: succeeds if
// the file is already absent.
func (c *ConfigFS) DeleteConfigFile(d Dir, name string) error {
	path := c.filePath(d, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("configfs: remove %s: %w", path, err)
	}
	return nil
}

// IterFunc is called once per entry during a streaming List. Returning an
// error stops iteration and the error propagates to the List caller.
type IterFunc func(name string, data []byte) error

// List invokes fn once for every *.json entry in dir, streaming file
// contents rather than buffering the whole directory in memory.
func (c *ConfigFS) List(d Dir, fn IterFunc) error {
	entries, err := os.ReadDir(c.dirPath(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("configfs: readdir %s: %w", d, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".json")]
		data, err := os.ReadFile(filepath.Join(c.dirPath(d), e.Name()))
		if err != nil {
			return fmt.Errorf("configfs: read %s: %w", e.Name(), err)
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
	return nil
}

// ListNames returns every entry name (without .json) in dir, without
// reading file contents. Used by ManageAPI's non-wide list responses.
func (c *ConfigFS) ListNames(d Dir) ([]string, error) {
	entries, err := os.ReadDir(c.dirPath(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configfs: readdir %s: %w", d, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".json")])
	}
	return names, nil
}

// ReadSystemFile reads system.json from the config root. Returns
// ErrNotFound if it has never been initialized.
func (c *ConfigFS) ReadSystemFile() ([]byte, error) {
	path := filepath.Join(c.root, SystemFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("configfs: read %s: %w", path, err)
	}
	return data, nil
}

// WriteSystemFile atomically replaces system.json, creating it if absent.
func (c *ConfigFS) WriteSystemFile(data []byte) error {
	return c.atomicWrite(filepath.Join(c.root, SystemFile), data)
}

// atomicWrite writes data to a temp file in the same directory as path,
// fsyncs it, then renames it into place. On BackendGPFS it instead unlinks
// the target, hard-links the temp file onto the target name and unlinks
// the temp file, with no rename (see doc.go).
func (c *ConfigFS) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("configfs: create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("configfs: write temp %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("configfs: fsync temp %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("configfs: close temp %s: %w", tmpPath, err)
	}

	if c.backend == BackendGPFS {
		if err := gpfsReplace(tmpPath, path); err != nil {
			return err
		}
	} else {
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("configfs: rename %s -> %s: %w", tmpPath, path, err)
		}
	}
	cleanupTmp = false

	// fsync the containing directory so the rename itself is durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// gpfsReplace approximates GPFS's replace-in-place pattern: link the new
// temp file onto the target name (removing any existing link first), then
// unlink the temp path. See doc.go for why this is an approximation, not a
// guarantee, of GPFS atomic-replace semantics.
func gpfsReplace(tmpPath, target string) error {
	if err := unix.Unlink(target); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("configfs: gpfs unlink %s: %w", target, err)
	}
	if err := unix.Link(tmpPath, target); err != nil {
		return fmt.Errorf("configfs: gpfs link %s -> %s: %w", tmpPath, target, err)
	}
	if err := unix.Unlink(tmpPath); err != nil {
		return fmt.Errorf("configfs: gpfs unlink temp %s: %w", tmpPath, err)
	}
	return nil
}
