package configfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigFS(t *testing.T) *ConfigFS {
	t.Helper()
	c, err := New(t.TempDir(), BackendNone)
	require.NoError(t, err)
	return c
}

func TestCreateReadUpdateDelete(t *testing.T) {
	c := newTestConfigFS(t)

	require.NoError(t, c.CreateConfigFile(AccountsDir, "alice", []byte(`{"name":"alice"}`)))

	_, err := c.ReadConfigFile(AccountsDir, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	data, err := c.ReadConfigFile(AccountsDir, "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice"}`, string(data))

	err = c.CreateConfigFile(AccountsDir, "alice", []byte(`{}`))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, c.UpdateConfigFile(AccountsDir, "alice", []byte(`{"name":"alice","v":2}`)))
	data, err = c.ReadConfigFile(AccountsDir, "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice","v":2}`, string(data))

	require.NoError(t, c.DeleteConfigFile(AccountsDir, "alice"))
	// Idempotent: deleting an already-absent file is not an error.
	assert.NoError(t, c.DeleteConfigFile(AccountsDir, "alice"))
}

func TestUpdateMissingFileFails(t *testing.T) {
	c := newTestConfigFS(t)
	err := c.UpdateConfigFile(BucketsDir, "missing", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	c := newTestConfigFS(t)
	require.NoError(t, c.CreateConfigFile(BucketsDir, "b1", []byte(`{}`)))

	entries, err := os.ReadDir(c.dirPath(BucketsDir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, filepath.Ext(e.Name()) != ".json", "unexpected leftover file %s", e.Name())
	}
}

func TestListAndListNames(t *testing.T) {
	c := newTestConfigFS(t)
	require.NoError(t, c.CreateConfigFile(AccountsDir, "a1", []byte(`{"n":1}`)))
	require.NoError(t, c.CreateConfigFile(AccountsDir, "a2", []byte(`{"n":2}`)))

	names, err := c.ListNames(AccountsDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2"}, names)

	seen := map[string]bool{}
	err = c.List(AccountsDir, func(name string, data []byte) error {
		seen[name] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestSystemFileRoundTrip(t *testing.T) {
	c := newTestConfigFS(t)
	_, err := c.ReadSystemFile()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.WriteSystemFile([]byte(`{"version":"1.0.0"}`)))
	data, err := c.ReadSystemFile()
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, string(data))
}

func TestAccessKeyLinkRoundTrip(t *testing.T) {
	c := newTestConfigFS(t)
	require.NoError(t, c.CreateConfigFile(AccountsDir, "alice", []byte(`{"name":"alice"}`)))
	require.NoError(t, c.LinkAccessKey("AKIAEXAMPLE", "alice"))

	data, err := c.GetAccountByAccessKey("AKIAEXAMPLE")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice"}`, string(data))

	name, err := c.AccessKeyAccountName("AKIAEXAMPLE")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	// Replacing the link (regenerate) must not error and must point at
	// the new target.
	require.NoError(t, c.CreateConfigFile(AccountsDir, "bob", []byte(`{"name":"bob"}`)))
	require.NoError(t, c.LinkAccessKey("AKIAEXAMPLE", "bob"))
	data, err = c.GetAccountByAccessKey("AKIAEXAMPLE")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"bob"}`, string(data))

	require.NoError(t, c.UnlinkAccessKey("AKIAEXAMPLE"))
	_, err = c.GetAccountByAccessKey("AKIAEXAMPLE")
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent: unlinking an already-absent key is not an error.
	assert.NoError(t, c.UnlinkAccessKey("AKIAEXAMPLE"))
}

func TestGetAccountByAccessKey_DanglingLink(t *testing.T) {
	c := newTestConfigFS(t)
	require.NoError(t, c.CreateConfigFile(AccountsDir, "alice", []byte(`{}`)))
	require.NoError(t, c.LinkAccessKey("AKIADANGLING", "alice"))
	require.NoError(t, c.DeleteConfigFile(AccountsDir, "alice"))

	_, err := c.GetAccountByAccessKey("AKIADANGLING")
	assert.True(t, errors.Is(err, ErrCorrupted))
}
