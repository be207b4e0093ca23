package manageapi

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/nsfscore/nsfsctl/pkg/buckets"
	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
	"github.com/nsfscore/nsfsctl/pkg/glacierwal"
)

// GlacierRestoreStartOptions are the options for `glacier restore_start`:
// the ManageAPI surface for the source's restore_object(bucket, key,
// days).
type GlacierRestoreStartOptions struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Days   int    `json:"days"`
}

func (s *Server) dispatchGlacier(ctx context.Context, req Request) Result {
	switch req.Action {
	case ActionMigrateRun:
		return s.glacierMigrateRun(ctx)
	case ActionRestoreStart:
		var opts GlacierRestoreStartOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.glacierRestoreStart(opts)
	case ActionRestoreRun:
		return s.glacierRestoreRun(ctx)
	case ActionRestoreSweep:
		return s.glacierRestoreSweep(ctx)
	default:
		return errResult(CodeInvalidArgument, fmt.Sprintf("unknown glacier action %q", req.Action))
	}
}

func (s *Server) glacierMigrateRun(ctx context.Context) Result {
	if s.migrateWAL == nil {
		return errResult(CodeInternal, "migrate WAL not configured")
	}
	if err := glacierwal.RunMigrateJob(ctx, s.migrateWAL, s.glacier, s.resolveRef); err != nil {
		return errResult(CodeIO, err.Error())
	}
	return okResult(map[string]string{"status": "ok"})
}

func (s *Server) glacierRestoreStart(opts GlacierRestoreStartOptions) Result {
	if opts.Bucket == "" || opts.Key == "" {
		return errResult(CodeMissingIdentifier, "bucket and key are required")
	}
	if opts.Days <= 0 {
		return errResult(CodeInvalidArgument, "days must be positive")
	}
	if s.restoreWAL == nil {
		return errResult(CodeInternal, "restore WAL not configured")
	}
	path, err := s.objectPath(opts.Bucket, opts.Key)
	if err != nil {
		return notFoundOrInternal(opts.Bucket, err)
	}
	entry := glacierwal.RestoreEntry{Path: path, Bucket: opts.Bucket, Key: opts.Key, Days: opts.Days}
	if err := glacierwal.RestoreObject(s.restoreWAL, entry); err != nil {
		return errResult(CodeIO, err.Error())
	}
	return okResult(map[string]any{"ongoing": true})
}

func (s *Server) glacierRestoreRun(ctx context.Context) Result {
	if s.restoreWAL == nil {
		return errResult(CodeInternal, "restore WAL not configured")
	}
	if err := glacierwal.RunRestoreJob(ctx, s.restoreWAL, s.glacier, time.Now()); err != nil {
		return errResult(CodeIO, err.Error())
	}
	return okResult(map[string]string{"status": "ok"})
}

// glacierRestoreSweep walks every bucket's filesystem tree for objects
// carrying a restore_status marker and reverts any whose restore window
// has expired.
func (s *Server) glacierRestoreSweep(ctx context.Context) Result {
	var refs []glacier.ObjectRef
	paths := map[string]string{}

	err := s.cfs.List(configfs.BucketsDir, func(name string, data []byte) error {
		b, err := buckets.UnmarshalBucket(data)
		if err != nil {
			return err
		}
		return filepath.WalkDir(b.Path, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			_, ok, serr := glacierwal.GetRestoreStatus(path)
			if serr != nil {
				return serr
			}
			if !ok {
				return nil
			}
			key, relErr := filepath.Rel(b.Path, path)
			if relErr != nil {
				return relErr
			}
			ref := glacier.ObjectRef{Bucket: b.Name, Key: filepath.ToSlash(key)}
			refs = append(refs, ref)
			paths[refKey(ref)] = path
			return nil
		})
	})
	if err != nil {
		return errResult(CodeIO, err.Error())
	}

	resolve := func(ref glacier.ObjectRef) (string, error) {
		path, ok := paths[refKey(ref)]
		if !ok {
			return "", fmt.Errorf("no path recorded for %s/%s", ref.Bucket, ref.Key)
		}
		return path, nil
	}
	if err := glacierwal.SweepExpiredRestores(ctx, s.glacier, time.Now(), refs, resolve); err != nil {
		return errResult(CodeIO, err.Error())
	}
	return okResult(map[string]int{"checked": len(refs)})
}

func refKey(ref glacier.ObjectRef) string { return ref.Bucket + "/" + ref.Key }

// resolveRef maps an object's absolute data path back to the bucket/key
// pair by finding the bucket whose Path is an ancestor of path.
func (s *Server) resolveRef(path string) (glacier.ObjectRef, error) {
	var match *buckets.Bucket
	err := s.cfs.List(configfs.BucketsDir, func(name string, data []byte) error {
		b, err := buckets.UnmarshalBucket(data)
		if err != nil {
			return err
		}
		if isUnderPath(b.Path, path) {
			match = b
		}
		return nil
	})
	if err != nil {
		return glacier.ObjectRef{}, err
	}
	if match == nil {
		return glacier.ObjectRef{}, fmt.Errorf("no bucket owns path %s", path)
	}
	key, err := filepath.Rel(match.Path, path)
	if err != nil {
		return glacier.ObjectRef{}, err
	}
	return glacier.ObjectRef{Bucket: match.Name, Key: filepath.ToSlash(key)}, nil
}

// objectPath computes an object's absolute data path from its bucket and
// key, the inverse of resolveRef.
func (s *Server) objectPath(bucketName, key string) (string, error) {
	data, err := s.cfs.ReadConfigFile(configfs.BucketsDir, bucketName)
	if err != nil {
		return "", err
	}
	b, err := buckets.UnmarshalBucket(data)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.Path, key), nil
}

func isUnderPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
