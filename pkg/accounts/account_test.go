package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uint32p(v uint32) *uint32 { return &v }

func validAccount() *Account {
	return NewAccount("alice", "/export/alice", AccountFSConfig{
		UID: uint32p(1000),
		GID: uint32p(1000),
	}, []S3Access{{AccessKey: "ABCDEFGHIJ0123456789", SecretKey: "abcdefghijklmnopqrstuvwxyzABCDEFGHIJ01234"[:40]}})
}

func TestAccountValidate_OK(t *testing.T) {
	a := validAccount()
	require.NoError(t, a.Validate())
}

func TestAccountValidate_MissingAccessKeys(t *testing.T) {
	a := validAccount()
	a.AccessKeys = nil
	assert.Error(t, a.Validate())
}

func TestAccountMarshalRoundTrip(t *testing.T) {
	a := validAccount()
	data, err := a.MarshalConfig()
	require.NoError(t, err)

	got, err := UnmarshalAccount(data)
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, a.NewBucketsPath, got.NewBucketsPath)
}

func TestAccountFSConfig_IdentityFromUIDGID(t *testing.T) {
	cfg := AccountFSConfig{UID: uint32p(1000), GID: uint32p(2000)}
	ident, err := cfg.Identity()
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), ident.UID)
	assert.Equal(t, uint32(2000), ident.GID)
}

func TestAccountFSConfig_NoIdentitySource(t *testing.T) {
	cfg := AccountFSConfig{}
	_, err := cfg.Identity()
	assert.Error(t, err)
}

func TestCache_PutGetInvalidate(t *testing.T) {
	c := &Cache{entries: map[string]cacheEntry{}, capacity: 10, ttl: time.Minute, done: make(chan struct{})}
	a := validAccount()
	c.Put(a)

	got, ok := c.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, a.Name, got.Name)

	c.Invalidate(a.ID)
	_, ok = c.Get(a.ID)
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := &Cache{entries: map[string]cacheEntry{}, capacity: 10, ttl: time.Millisecond, done: make(chan struct{})}
	a := validAccount()
	c.Put(a)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(a.ID)
	assert.False(t, ok)
}

func TestCache_CapacityEviction(t *testing.T) {
	c := &Cache{entries: map[string]cacheEntry{}, capacity: 1, ttl: time.Minute, done: make(chan struct{})}
	a1 := validAccount()
	a2 := validAccount()
	a2.ID = "different-id"

	c.Put(a1)
	c.Put(a2)
	assert.LessOrEqual(t, len(c.entries), 1)
}
