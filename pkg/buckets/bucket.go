// Package buckets defines the nsfs_bucket data model persisted by
// ConfigFS under buckets/<name>.json.
package buckets

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nsfscore/nsfsctl/pkg/identity"
)

// Bucket is the nsfs_bucket_config document: a named directory under a
// bucket-owning account's filesystem, with an owner account id for
// permission checks.
type Bucket struct {
	ID string `json:"_id"`
	Name string `json:"name" validate:"required"`

	// OwnerAccount is the owning account's _id: the authoritative
	// reference used for cross-entity checks such as refusing account
	// deletion while buckets still reference it.
	OwnerAccount string `json:"owner_account" validate:"required"`

	// BucketOwner is the owning account's name, denormalized for display
	// (CLI status/list output) so readers don't need a second lookup.
	BucketOwner string `json:"bucket_owner" validate:"required"`

	Path string `json:"path" validate:"required"` // absolute path on disk

	// Versioning mirrors the S3 bucket versioning states this control
	// plane needs to track for the ManageAPI status/list surface, even
	// though object versioning itself lives outside this core.
	Versioning string `json:"versioning,omitempty" validate:"omitempty,oneof=DISABLED ENABLED SUSPENDED"`

	CreationDate time.Time `json:"creation_date"`
}

// NewBucket builds a new Bucket with a freshly generated id and creation
// timestamp. ownerAccount is the owning account's _id; ownerName is its
// display name.
func NewBucket(name, ownerAccount, ownerName, path string) *Bucket {
	return &Bucket{
		ID:           uuid.NewString(),
		Name:         name,
		OwnerAccount: ownerAccount,
		BucketOwner:  ownerName,
		Path:         path,
		Versioning:   "DISABLED",
		CreationDate: time.Now().UTC(),
	}
}

// Validate validates the bucket against its struct tags.
func (b *Bucket) Validate() error {
	return identity.ValidateStruct(b)
}

// MarshalConfig serializes the bucket as the JSON document ConfigFS
// stores under buckets/<name>.json.
func (b *Bucket) MarshalConfig() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("buckets: marshal %s: %w", b.Name, err)
	}
	return data, nil
}

// UnmarshalBucket parses a ConfigFS bucket document.
func UnmarshalBucket(data []byte) (*Bucket, error) {
	var b Bucket
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("buckets: unmarshal: %w", err)
	}
	return &b, nil
}
