package glacierwal

import (
	"context"
	"fmt"

	"github.com/nsfscore/nsfsctl/internal/logger"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
)

// ResolveRef maps an object's absolute data path back to the
// bucket/key pair a glacier.Backend operates on.
type ResolveRef func(path string) (glacier.ObjectRef, error)

// RecordMigrate appends path — the object's absolute data path — to the
// migrate WAL, called on object upload with storage class GLACIER. The
// record is the bare path, one per line; no envelope, so a sealed
// segment's contents are exactly the paths written to it, in order.
func RecordMigrate(w *WAL, path string) error {
	return w.Append([]byte(path))
}

// MigrateSegment reads every path recorded in segmentPath and, for any
// path the backend still says should migrate, calls backend.Migrate. It
// returns the paths that failed to migrate — the subset the caller must
// retain the segment for.
func MigrateSegment(ctx context.Context, backend glacier.Backend, resolve ResolveRef, segmentPath string) ([]string, error) {
	var failed []string
	err := ReadRecords(segmentPath, func(record []byte) error {
		path := string(record)
		ref, err := resolve(path)
		if err != nil {
			return fmt.Errorf("glacierwal: resolve %s: %w", path, err)
		}
		should, err := backend.ShouldMigrate(ctx, ref)
		if err != nil {
			return fmt.Errorf("glacierwal: should_migrate %s: %w", path, err)
		}
		if !should {
			return nil
		}
		if err := backend.Migrate(ctx, ref); err != nil {
			logger.Error("glacierwal migrate failed, entry retained", logger.Err(err))
			failed = append(failed, path)
		}
		return nil
	})
	return failed, err
}

// RunMigrateJob drains every sealed segment of the migrate WAL through
// backend. A segment is retired only once every path in it migrated
// successfully; any failure retains the whole segment for the next pass,
// matching the WAL's at-least-once delivery contract.
func RunMigrateJob(ctx context.Context, w *WAL, backend glacier.Backend, resolve ResolveRef) error {
	return w.ProcessInactive(func(segmentPath string) bool {
		failed, err := MigrateSegment(ctx, backend, resolve, segmentPath)
		if err != nil {
			logger.Error("glacierwal migrate segment failed", logger.WAL(w.name), logger.Segment(segmentPath), logger.Err(err))
			return false
		}
		return len(failed) == 0
	})
}
