package identity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// WithIdentity locks the calling goroutine to its current OS thread, scopes
// the thread's filesystem UID/GID to ident for the duration of fn, then
// restores the thread's previous filesystem UID/GID before unlocking.
//
// setfsuid/setfsgid are per-thread, not per-process, which is what makes
// this safe to call concurrently from independent goroutines: each call
// only ever affects the one OS thread it locked itself to, never any other
// goroutine's thread. The restore runs even if fn panics, so a caller that
// recovers the panic never observes a thread still scoped to ident.
func WithIdentity(ident Identity, fn func() error) (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prevUID, err := setfsuid(ident.UID)
	if err != nil {
		return fmt.Errorf("identity: setfsuid(%d): %w", ident.UID, err)
	}
	defer func() {
		if _, restoreErr := setfsuid(prevUID); restoreErr != nil && err == nil {
			err = fmt.Errorf("identity: restore fsuid: %w", restoreErr)
		}
	}()

	prevGID, err := setfsgid(ident.GID)
	if err != nil {
		return fmt.Errorf("identity: setfsgid(%d): %w", ident.GID, err)
	}
	defer func() {
		if _, restoreErr := setfsgid(prevGID); restoreErr != nil && err == nil {
			err = fmt.Errorf("identity: restore fsgid: %w", restoreErr)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			// Run the deferred restores above before propagating; the
			// defers already registered will still fire as this defer
			// unwinds, so just re-panic after letting them run.
			panic(r)
		}
	}()

	return fn()
}

// setfsuid wraps unix.Setfsuid, which (unusually among the set*id family)
// always "succeeds" and returns the previous fsuid rather than an error
// code; we treat "new fsuid didn't take" as a failure since it indicates
// a privilege problem (e.g. not running as root and lacking CAP_SETUID).
func setfsuid(uid uint32) (uint32, error) {
	prev := unix.Setfsuid(int(uid))
	current := unix.Setfsuid(-1)
	if uint32(current) != uid {
		// Restore before reporting failure so the thread isn't left
		// scoped to a uid that failed to apply.
		unix.Setfsuid(prev)
		return 0, fmt.Errorf("fsuid did not change to %d (still %d)", uid, current)
	}
	return uint32(prev), nil
}

func setfsgid(gid uint32) (uint32, error) {
	prev := unix.Setfsgid(int(gid))
	current := unix.Setfsgid(-1)
	if uint32(current) != gid {
		unix.Setfsgid(prev)
		return 0, fmt.Errorf("fsgid did not change to %d (still %d)", gid, current)
	}
	return uint32(prev), nil
}
