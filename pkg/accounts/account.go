// Package accounts defines the nsfs_account data model persisted by
// ConfigFS under accounts/<name>.json, together with an in-process,
// fsnotify-invalidated lookup cache keyed by account id.
package accounts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nsfscore/nsfsctl/pkg/identity"
)

// S3Access holds the access-key credentials an account authenticates
// S3-compatible requests with.
type S3Access struct {
	AccessKey string `json:"access_key" validate:"required,nsfs_access_key"`
	SecretKey string `json:"secret_key" validate:"required,nsfs_secret_key"`
}

// Account is the nsfs_account_config document.
type Account struct {
	ID   string `json:"_id"`
	Name string `json:"name" validate:"required"`

	// NewBucketsPath is the filesystem directory under which this
	// account's buckets are created by default.
	NewBucketsPath string `json:"new_buckets_path" validate:"required"`

	// NSFSAccountConfig carries the resolved scoped identity used for
	// every filesystem operation this account performs.
	NSFSAccountConfig AccountFSConfig `json:"nsfs_account_config" validate:"required"`

	AccessKeys []S3Access `json:"access_keys" validate:"required,min=1,dive"`

	CreationDate time.Time `json:"creation_date"`
}

// AccountFSConfig is the {uid,gid} (or distinguished_name) pair an
// account's filesystem operations run as.
type AccountFSConfig struct {
	UID               *uint32 `json:"uid,omitempty" validate:"required_with=GID,excluded_with=DistinguishedName"`
	GID               *uint32 `json:"gid,omitempty" validate:"required_with=UID,excluded_with=DistinguishedName"`
	DistinguishedName string  `json:"distinguished_name,omitempty" validate:"excluded_with=UID,excluded_with=GID"`
}

// Identity resolves the account's scoped identity, preferring an explicit
// uid/gid pair and falling back to distinguished-name resolution.
func (c AccountFSConfig) Identity() (identity.Identity, error) {
	if c.UID != nil && c.GID != nil {
		return identity.Identity{UID: *c.UID, GID: *c.GID}, nil
	}
	if c.DistinguishedName != "" {
		return identity.ResolveDistinguishedName(c.DistinguishedName)
	}
	return identity.Identity{}, fmt.Errorf("accounts: no uid/gid or distinguished_name set")
}

// NewAccount builds a new Account with a freshly generated id and
// creation timestamp.
func NewAccount(name, newBucketsPath string, fsConfig AccountFSConfig, keys []S3Access) *Account {
	return &Account{
		ID:                uuid.NewString(),
		Name:              name,
		NewBucketsPath:    newBucketsPath,
		NSFSAccountConfig: fsConfig,
		AccessKeys:        keys,
		CreationDate:      time.Now().UTC(),
	}
}

// Validate validates the account against its struct tags.
func (a *Account) Validate() error {
	return identity.ValidateStruct(a)
}

// MarshalConfig serializes the account as the JSON document ConfigFS
// stores under accounts/<name>.json.
func (a *Account) MarshalConfig() ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("accounts: marshal %s: %w", a.Name, err)
	}
	return data, nil
}

// UnmarshalAccount parses a ConfigFS account document.
func UnmarshalAccount(data []byte) (*Account, error) {
	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("accounts: unmarshal: %w", err)
	}
	return &a, nil
}

// PrimaryAccessKey returns the account's first access key, which is the
// one new requests are issued against (regenerate replaces it in place).
func (a *Account) PrimaryAccessKey() (S3Access, bool) {
	if len(a.AccessKeys) == 0 {
		return S3Access{}, false
	}
	return a.AccessKeys[0], true
}
