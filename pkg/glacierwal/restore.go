package glacierwal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// restoreStatusXattr is the extended attribute name holding an object's
// current RestoreStatus, as a JSON blob.
const restoreStatusXattr = "user.nsfs.restore_status"

// RestoreStatus mirrors the restore_status object xattr restore_object
// sets to true and a successful restore job resolves: Ongoing is true for
// the duration between the restore request being recorded and the
// backend confirming it, then false with ExpiryTime set to when the
// restored copy reverts to cold storage.
type RestoreStatus struct {
	Ongoing    bool       `json:"ongoing"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// SetRestoreStatus records status as path's restore_status marker. It
// prefers a real extended attribute; on filesystems that return ENOTSUP
// for user xattrs (some network filesystem mounts), it falls back to a
// sidecar file named path+".restore_status".
func SetRestoreStatus(path string, status RestoreStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("glacierwal: marshal restore status for %s: %w", path, err)
	}
	err = unix.Setxattr(path, restoreStatusXattr, data, 0)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP) {
		return os.WriteFile(sidecarPath(path), data, 0600)
	}
	return fmt.Errorf("glacierwal: setxattr %s: %w", path, err)
}

// GetRestoreStatus reads path's restore_status marker, trying the xattr
// first and falling back to the sidecar file. ok is false if path has no
// restore_status recorded at all.
func GetRestoreStatus(path string) (status RestoreStatus, ok bool, err error) {
	buf := make([]byte, 256)
	n, xerr := unix.Getxattr(path, restoreStatusXattr, buf)
	if xerr == nil {
		status, err = parseRestoreStatus(buf[:n])
		return status, err == nil, err
	}
	if errors.Is(xerr, unix.ENODATA) {
		return RestoreStatus{}, false, nil
	}
	if errors.Is(xerr, unix.ENOTSUP) || errors.Is(xerr, unix.EOPNOTSUPP) {
		data, ferr := os.ReadFile(sidecarPath(path))
		if os.IsNotExist(ferr) {
			return RestoreStatus{}, false, nil
		}
		if ferr != nil {
			return RestoreStatus{}, false, fmt.Errorf("glacierwal: read sidecar for %s: %w", path, ferr)
		}
		status, err = parseRestoreStatus(data)
		return status, err == nil, err
	}
	return RestoreStatus{}, false, fmt.Errorf("glacierwal: getxattr %s: %w", path, xerr)
}

// ClearRestoreStatus removes the restore_status marker, trying both the
// xattr and the sidecar file since a given deployment might have switched
// backends between SetRestoreStatus calls.
func ClearRestoreStatus(path string) error {
	err := unix.Removexattr(path, restoreStatusXattr)
	if err != nil && !errors.Is(err, unix.ENODATA) && !errors.Is(err, unix.ENOTSUP) && !errors.Is(err, unix.EOPNOTSUPP) {
		return fmt.Errorf("glacierwal: removexattr %s: %w", path, err)
	}
	if rmErr := os.Remove(sidecarPath(path)); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("glacierwal: remove sidecar for %s: %w", path, rmErr)
	}
	return nil
}

func sidecarPath(path string) string {
	return path + ".restore_status"
}

func parseRestoreStatus(data []byte) (RestoreStatus, error) {
	var status RestoreStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return RestoreStatus{}, fmt.Errorf("glacierwal: parse restore status %q: %w", data, err)
	}
	return status, nil
}
