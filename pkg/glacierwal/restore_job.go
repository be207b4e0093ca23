package glacierwal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsfscore/nsfsctl/internal/logger"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
)

// RestoreEntry is one record in the restore WAL: a request to bring an
// object back to a readable tier for Days days.
type RestoreEntry struct {
	Path   string `json:"path"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Days   int    `json:"days"`
}

func (e RestoreEntry) objectRef() glacier.ObjectRef {
	return glacier.ObjectRef{Bucket: e.Bucket, Key: e.Key}
}

// RestoreObject appends a restore request to the restore WAL and marks
// entry.Path as restore-ongoing, so a caller polling the object's
// restore_status sees {ongoing: true} immediately, before the driving
// job ever runs.
func RestoreObject(w *WAL, entry RestoreEntry) error {
	if err := SetRestoreStatus(entry.Path, RestoreStatus{Ongoing: true}); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("glacierwal: marshal restore entry: %w", err)
	}
	return w.Append(data)
}

// RestoreSegment decodes every record in segmentPath and calls
// backend.Restore for each. On success it resolves the object's
// restore_status to {ongoing: false, expiry_time: now + days}. It
// returns the entries backend.Restore failed on — the subset the caller
// must retain the segment for.
func RestoreSegment(ctx context.Context, backend glacier.Backend, now time.Time, segmentPath string) ([]RestoreEntry, error) {
	var failed []RestoreEntry
	err := ReadRecords(segmentPath, func(record []byte) error {
		var entry RestoreEntry
		if err := json.Unmarshal(record, &entry); err != nil {
			return fmt.Errorf("glacierwal: decode restore entry: %w", err)
		}
		if err := backend.Restore(ctx, entry.objectRef(), glacier.ObjectAvailability{Days: entry.Days}); err != nil {
			logger.Error("glacierwal restore failed, entry retained", logger.Err(err))
			failed = append(failed, entry)
			return nil
		}
		expiry := now.Add(time.Duration(entry.Days) * 24 * time.Hour)
		if err := SetRestoreStatus(entry.Path, RestoreStatus{Ongoing: false, ExpiryTime: &expiry}); err != nil {
			return fmt.Errorf("glacierwal: set restore status for %s: %w", entry.Path, err)
		}
		return nil
	})
	return failed, err
}

// RunRestoreJob drains every sealed segment of the restore WAL through
// backend, retiring a segment only once every entry in it restored
// successfully.
func RunRestoreJob(ctx context.Context, w *WAL, backend glacier.Backend, now time.Time) error {
	return w.ProcessInactive(func(segmentPath string) bool {
		failed, err := RestoreSegment(ctx, backend, now, segmentPath)
		if err != nil {
			logger.Error("glacierwal restore segment failed", logger.WAL(w.name), logger.Segment(segmentPath), logger.Err(err))
			return false
		}
		return len(failed) == 0
	})
}

// SweepExpiredRestores walks refs (typically objects currently tracked as
// restored by the glacier backend) and calls backend.ProcessExpired for
// each whose restore_status.expiry_time has passed, clearing the status
// once ProcessExpired succeeds. resolvePath maps a ref back to the
// filesystem path carrying its restore_status xattr.
func SweepExpiredRestores(ctx context.Context, backend glacier.Backend, now time.Time, refs []glacier.ObjectRef, resolvePath func(glacier.ObjectRef) (string, error)) error {
	for _, ref := range refs {
		path, err := resolvePath(ref)
		if err != nil {
			return fmt.Errorf("glacierwal: resolve path for %s/%s: %w", ref.Bucket, ref.Key, err)
		}
		status, ok, err := GetRestoreStatus(path)
		if err != nil {
			return err
		}
		if !ok || status.Ongoing || status.ExpiryTime == nil || now.Before(*status.ExpiryTime) {
			continue
		}
		if err := backend.ProcessExpired(ctx, ref); err != nil {
			return fmt.Errorf("glacierwal: process expired %s/%s: %w", ref.Bucket, ref.Key, err)
		}
		if err := ClearRestoreStatus(path); err != nil {
			return err
		}
	}
	return nil
}
