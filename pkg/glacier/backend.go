// Package glacier defines the storage-class migration backend interface
// GlacierWAL drives: deciding whether an object should be migrated to
// cold storage, performing that migration, and restoring a migrated
// object back to a readable tier on demand.
package glacier

import "context"

// ObjectRef identifies an object a migrate/restore request applies to.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Backend is the interface GlacierWAL's processor calls into. A real
// vendor tape/cold-storage driver is out of scope for this core (it is
// an external collaborator, like the S3 wire protocol); Backend is the
// seam a deployment plugs one into.
type Backend interface {
	// ShouldMigrate decides whether ref currently qualifies for
	// migration to cold storage (e.g. based on a lifecycle policy this
	// backend tracks out of band).
	ShouldMigrate(ctx context.Context, ref ObjectRef) (bool, error)

	// Migrate transitions ref to the backend's cold storage class.
	Migrate(ctx context.Context, ref ObjectRef) error

	// Restore brings ref back to a readable tier for the given
	// duration, after which it reverts to cold storage.
	Restore(ctx context.Context, ref ObjectRef, availableFor ObjectAvailability) error

	// ProcessExpired is invoked by the restore-expiry sweep for any ref
	// whose restore window has elapsed, so the backend can revert it to
	// cold storage.
	ProcessExpired(ctx context.Context, ref ObjectRef) error
}

// ObjectAvailability bounds how long a restored object stays in a
// readable tier before automatically reverting to cold storage.
type ObjectAvailability struct {
	Days int
}

// NullBackend is a no-op Backend, used when no cold-storage backend is
// configured: ShouldMigrate always declines, and the mutating methods
// succeed without doing anything.
type NullBackend struct{}

var _ Backend = NullBackend{}

func (NullBackend) ShouldMigrate(context.Context, ObjectRef) (bool, error) { return false, nil }
func (NullBackend) Migrate(context.Context, ObjectRef) error               { return nil }
func (NullBackend) Restore(context.Context, ObjectRef, ObjectAvailability) error {
	return nil
}
func (NullBackend) ProcessExpired(context.Context, ObjectRef) error { return nil }
