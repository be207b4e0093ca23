package identity

import (
	"context"
	"os"
	"os/user"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDistinguishedName_Unknown(t *testing.T) {
	_, err := ResolveDistinguishedName("definitely-not-a-real-user-xyz")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestResolveDistinguishedName_CurrentUser(t *testing.T) {
	cur, err := user.Current()
	require.NoError(t, err)

	ident, err := ResolveDistinguishedName(cur.Username)
	require.NoError(t, err)
	assert.Equal(t, cur.Uid, itoa(ident.UID))
	assert.Equal(t, cur.Gid, itoa(ident.GID))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	digits := []byte{}
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func TestValidateAccessKeySecretKey(t *testing.T) {
	assert.True(t, ValidateAccessKey("ABCDEFGHIJ0123456789"))
	assert.False(t, ValidateAccessKey("too-short"))

	assert.True(t, ValidateSecretKey("abcdefghijklmnopqrstuvwxyzABCDEFGHIJ0123"[:40]))
	assert.False(t, ValidateSecretKey("short"))
}

func TestProbeNewBucketsPath(t *testing.T) {
	cur, err := user.Current()
	require.NoError(t, err)
	ident, err := ResolveDistinguishedName(cur.Username)
	require.NoError(t, err)

	dir := t.TempDir()
	err = ProbeNewBucketsPath(context.Background(), ident, dir, time.Second)
	require.NoError(t, err)
}

func TestProbeNewBucketsPath_NotADirectory(t *testing.T) {
	cur, err := user.Current()
	require.NoError(t, err)
	ident, err := ResolveDistinguishedName(cur.Username)
	require.NoError(t, err)

	dir := t.TempDir()
	file := dir + "/not-a-dir"
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	err = ProbeNewBucketsPath(context.Background(), ident, file, time.Second)
	assert.Error(t, err)
}
