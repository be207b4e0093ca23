package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ProbeNewBucketsPath verifies that path is a directory writable by ident,
// by performing a scoped create+remove of a throwaway file inside it. It
// is used when adding or updating an account's new_buckets_path so a
// misconfigured path is caught at account-add time, not at first bucket
// creation.
func ProbeNewBucketsPath(ctx context.Context, ident Identity, path string, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- WithIdentity(ident, func() error {
			return probeWrite(path)
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("identity: probe %s as uid=%d gid=%d: %w", path, ident.UID, ident.GID, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("identity: probe %s timed out after %s", path, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func probeWrite(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	probeFile := filepath.Join(path, ".nsfs_probe_"+uuid.NewString())
	f, err := os.OpenFile(probeFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create probe file: %w", err)
	}
	f.Close()
	if err := os.Remove(probeFile); err != nil {
		return fmt.Errorf("remove probe file: %w", err)
	}
	return nil
}
