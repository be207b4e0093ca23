package buckets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketValidate_OK(t *testing.T) {
	b := NewBucket("photos", "account-1", "alice", "/export/alice/photos")
	require.NoError(t, b.Validate())
}

func TestBucketValidate_MissingOwner(t *testing.T) {
	b := NewBucket("photos", "", "alice", "/export/alice/photos")
	assert.Error(t, b.Validate())
}

func TestBucketMarshalRoundTrip(t *testing.T) {
	b := NewBucket("photos", "account-1", "alice", "/export/alice/photos")
	data, err := b.MarshalConfig()
	require.NoError(t, err)

	got, err := UnmarshalBucket(data)
	require.NoError(t, err)
	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, b.OwnerAccount, got.OwnerAccount)
	assert.Equal(t, b.BucketOwner, got.BucketOwner)
}

func TestBucketValidate_InvalidVersioning(t *testing.T) {
	b := NewBucket("photos", "account-1", "alice", "/export/alice/photos")
	b.Versioning = "WEIRD"
	assert.Error(t, b.Validate())
}
