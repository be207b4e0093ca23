package configfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// accessKeyLinkPath returns the path of the symlink that indexes an
// access key onto its owning account file.
func (c *ConfigFS) accessKeyLinkPath(accessKey string) string {
	return filepath.Join(c.dirPath(AccessKeysDir), accessKey)
}

// LinkAccessKey creates (or replaces) a symlink from access_keys/<key>
// to the account file accounts/<accountName>.json, so that resolving an
// access key to its account never requires scanning every account file.
func (c *ConfigFS) LinkAccessKey(accessKey, accountName string) error {
	linkPath := c.accessKeyLinkPath(accessKey)
	target := filepath.Join("..", string(AccountsDir), accountName+".json")

	// Replace any existing link atomically: build the new link next to
	// the target name, then rename over the old one. Symlink creation
	// itself can't target an existing path, so create-elsewhere-then-
	// rename is the only atomic replace available here.
	tmpLink := linkPath + ".tmp"
	os.Remove(tmpLink)
	if err := os.Symlink(target, tmpLink); err != nil {
		return fmt.Errorf("configfs: symlink %s -> %s: %w", tmpLink, target, err)
	}
	if err := os.Rename(tmpLink, linkPath); err != nil {
		os.Remove(tmpLink)
		return fmt.Errorf("configfs: rename symlink %s: %w", linkPath, err)
	}
	return nil
}

// UnlinkAccessKey removes the access_keys/<key> symlink. Idempotent:
// succeeds if the symlink is already absent.
func (c *ConfigFS) UnlinkAccessKey(accessKey string) error {
	linkPath := c.accessKeyLinkPath(accessKey)
	if err := os.Remove(linkPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("configfs: remove symlink %s: %w", linkPath, err)
	}
	return nil
}

// GetAccountByAccessKey resolves an access key symlink and reads the
// account file it points at, in one filesystem round trip per hop.
func (c *ConfigFS) GetAccountByAccessKey(accessKey string) ([]byte, error) {
	linkPath := c.accessKeyLinkPath(accessKey)
	target, err := os.Readlink(linkPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", accessKey, ErrNotFound)
		}
		return nil, fmt.Errorf("configfs: readlink %s: %w", linkPath, err)
	}

	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(c.dirPath(AccessKeysDir), target)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			// The symlink is dangling: the account was deleted without
			// its access-key links being cleaned up first.
			return nil, fmt.Errorf("account for access key %s: %w", accessKey, ErrCorrupted)
		}
		return nil, fmt.Errorf("configfs: read %s: %w", resolved, err)
	}
	return data, nil
}

// AccessKeyAccountName returns the account name an access key resolves
// to, without reading the account file's contents.
func (c *ConfigFS) AccessKeyAccountName(accessKey string) (string, error) {
	linkPath := c.accessKeyLinkPath(accessKey)
	target, err := os.Readlink(linkPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", accessKey, ErrNotFound)
		}
		return "", fmt.Errorf("configfs: readlink %s: %w", linkPath, err)
	}
	base := filepath.Base(target)
	return base[:len(base)-len(filepath.Ext(base))], nil
}

// ListAccessKeys returns every access key name currently linked.
func (c *ConfigFS) ListAccessKeys() ([]string, error) {
	entries, err := os.ReadDir(c.dirPath(AccessKeysDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configfs: readdir access_keys: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type()&os.ModeSymlink == 0 {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
