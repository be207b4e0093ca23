// Package identity resolves the UID/GID (or distinguished-name) an
// account or probe should run as, and provides a scoped way to perform
// filesystem operations under that identity without mutating the whole
// process's credentials.
//
// Rather than the traditional setuid/setgid-the-whole-process approach,
// WithIdentity locks the calling goroutine to its OS thread and scopes the
// filesystem UID/GID (setfsuid/setfsgid) for the duration of a callback,
// then restores the previous values before unlocking the thread. This
// keeps every other goroutine in the process running under the real
// process identity throughout.
package identity

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
)

// Identity is the scoped UID/GID a ConfigFS probe or account operation
// should run as.
type Identity struct {
	UID uint32
	GID uint32
}

var (
	// ErrUnknownUser is returned when a distinguished name does not
	// resolve to a local user account.
	ErrUnknownUser = errors.New("identity: unknown user")
)

// ResolveDistinguishedName resolves a distinguished name (a local account
// username) to its primary UID/GID pair via the platform's user database.
//
// Only the primary GID is resolved, not supplementary group membership:
// nsfs_account_config only ever documents a single {uid,gid} pair per
// account, so there is nothing to assign wider group membership to.
func ResolveDistinguishedName(dn string) (Identity, error) {
	u, err := user.Lookup(dn)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return Identity{}, fmt.Errorf("%s: %w", dn, ErrUnknownUser)
		}
		return Identity{}, fmt.Errorf("identity: lookup %s: %w", dn, err)
	}

	uid64, err := strconv.ParseInt(u.Uid, 10, 32)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: parse uid for %s: %w", dn, err)
	}
	gid64, err := strconv.ParseInt(u.Gid, 10, 32)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: parse gid for %s: %w", dn, err)
	}

	return Identity{UID: uint32(uid64), GID: uint32(gid64)}, nil
}
