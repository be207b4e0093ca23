package upgrade

import (
	"context"
	"testing"

	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, runningVersion Version) (*Controller, *configfs.ConfigFS) {
	t.Helper()
	cfs, err := configfs.New(t.TempDir(), configfs.BackendNone)
	require.NoError(t, err)
	return NewController(cfs, "", runningVersion), cfs
}

// seedSystemDoc writes an initial system.json naming the given hosts, all
// running currentVersion. A real deploy bootstraps this file externally
// before the first `upgrade start` is ever issued.
func seedSystemDoc(t *testing.T, cfs *configfs.ConfigFS, hosts []string, currentVersion Version) {
	t.Helper()
	doc := &SystemDoc{Hosts: map[string]*HostRecord{}}
	for _, h := range hosts {
		doc.Hosts[h] = &HostRecord{CurrentVersion: currentVersion}
	}
	require.NoError(t, writeSystemDoc(cfs, doc))
}

// withRegisteredScript registers s in the shared compiled-in script
// registry for the duration of the test, restoring the prior registry on
// cleanup so tests don't leak scripts into one another.
func withRegisteredScript(t *testing.T, s Script) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = append(append([]Script{}, registry...), s)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

func TestStart_NoScriptsIsNoOp(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, nil, "")

	result, err := c.Start(context.Background(), StartOptions{
		ExpectedVersion:  "1.0.0",
		SkipVerification: true,
	})
	require.NoError(t, err)
	assert.True(t, result.NoOp)

	status, err := c.Status()
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestStart_RunsScriptsAndRecordsHistory(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, nil, "1.0.0")

	ran := false
	withRegisteredScript(t, Script{
		Version:     "1.0.0",
		Description: "test migration",
		Run: func(cfs *configfs.ConfigFS) error {
			ran = true
			return nil
		},
	})

	result, err := c.Start(context.Background(), StartOptions{
		ExpectedVersion:  "1.0.0",
		SkipVerification: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Upgrade)
	assert.True(t, ran)
	assert.Equal(t, Version(""), result.Upgrade.ConfigDirFromVersion)
	assert.Equal(t, Version("1.0.0"), result.Upgrade.ConfigDirToVersion)
	assert.Equal(t, []string{"1.0.0"}, result.Upgrade.CompletedScripts)

	status, err := c.Status()
	require.NoError(t, err)
	assert.Nil(t, status)

	history, err := c.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, Version("1.0.0"), history[0].ConfigDirToVersion)
}

func TestStart_IdempotentReRun(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, nil, "1.0.0")
	withRegisteredScript(t, Script{Version: "1.0.0", Run: func(cfs *configfs.ConfigFS) error { return nil }})

	_, err := c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0", SkipVerification: true})
	require.NoError(t, err)

	// Re-running after the config directory already reached the compiled-in
	// target must be a no-op, not a re-run of already-applied scripts.
	result, err := c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0", SkipVerification: true})
	require.NoError(t, err)
	assert.True(t, result.NoOp)
}

func TestHistory_PreservesFromToVersionsSeparately(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, nil, "1.0.0")

	withRegisteredScript(t, Script{Version: "1.0.0", Run: func(cfs *configfs.ConfigFS) error { return nil }})
	_, err := c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0", SkipVerification: true})
	require.NoError(t, err)

	withRegisteredScript(t, Script{Version: "2.0.0", Run: func(cfs *configfs.ConfigFS) error { return nil }})
	_, err = c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0", SkipVerification: true})
	require.NoError(t, err)

	history, err := c.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first: the 1.0.0 -> 2.0.0 migration is history[0].
	assert.Equal(t, Version("1.0.0"), history[0].ConfigDirFromVersion)
	assert.Equal(t, Version("2.0.0"), history[0].ConfigDirToVersion)
	assert.Equal(t, Version(""), history[1].ConfigDirFromVersion)
	assert.Equal(t, Version("1.0.0"), history[1].ConfigDirToVersion)
}

func TestStart_RequiresSystemToAlreadyExist(t *testing.T) {
	c, _ := newTestController(t, "1.0.0")

	_, err := c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0", SkipVerification: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system does not exist")
}

func TestStart_RequiresExpectedVersionAndHosts(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, []string{"host-a"}, "1.0.0")

	_, err := c.Start(context.Background(), StartOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected_version")

	_, err = c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected_hosts")
}

// TestStart_RefusesUntilAllHostsConverge exercises the lagging-host
// precondition: every host recorded in system.json must already report
// expected_version before Start will touch the config directory.
func TestStart_RefusesUntilAllHostsConverge(t *testing.T) {
	c, cfs := newTestController(t, "2.0.0")
	doc := &SystemDoc{Hosts: map[string]*HostRecord{
		"host-a": {CurrentVersion: "2.0.0"},
		"host-b": {CurrentVersion: "1.9.0"},
	}}
	require.NoError(t, writeSystemDoc(cfs, doc))

	_, err := c.Start(context.Background(), StartOptions{
		ExpectedVersion: "2.0.0",
		ExpectedHosts:   []string{"host-a", "host-b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "until all nodes have the expected version")
}

func TestStart_RefusesHostSetMismatch(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, []string{"host-a"}, "1.0.0")

	_, err := c.Start(context.Background(), StartOptions{
		ExpectedVersion: "1.0.0",
		ExpectedHosts:   []string{"host-a", "host-b"},
	})
	require.Error(t, err)
}

func TestStart_RefusesExpectedVersionMismatch(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, []string{"host-a"}, "2.0.0")

	_, err := c.Start(context.Background(), StartOptions{
		ExpectedVersion: "2.0.0",
		ExpectedHosts:   []string{"host-a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match the user's expected version")
}

func TestStart_RefusesWhenLockedByConcurrentUpgrade(t *testing.T) {
	c, cfs := newTestController(t, "1.0.0")
	seedSystemDoc(t, cfs, nil, "1.0.0")

	doc, _, err := readSystemDoc(cfs)
	require.NoError(t, err)
	doc.ConfigDirectory = &ConfigDirectory{Phase: PhaseConfigDirLocked}
	require.NoError(t, writeSystemDoc(cfs, doc))

	_, err = c.Start(context.Background(), StartOptions{ExpectedVersion: "1.0.0", SkipVerification: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by a concurrent upgrade")
}
