package manageapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
	"github.com/nsfscore/nsfsctl/pkg/glacierwal"
	"github.com/nsfscore/nsfsctl/pkg/upgrade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfs, err := configfs.New(t.TempDir(), configfs.BackendNone)
	require.NoError(t, err)
	ctl := upgrade.NewController(cfs, "", upgrade.Version("5.15.0"))
	return NewServer(cfs, nil, ctl, nil, nil, nil)
}

func mustOptions(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDispatch_AccountAddListStatusDelete(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	uid, gid := uint32(1000), uint32(1000)
	addRes := s.Dispatch(ctx, Request{
		Type:   TypeAccount,
		Action: ActionAdd,
		Options: mustOptions(t, AccountAddOptions{
			Name:           "alice",
			NewBucketsPath: t.TempDir(),
			UID:            &uid,
			GID:            &gid,
		}),
	})
	require.Nil(t, addRes.Err)

	listRes := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionList,
		Options: mustOptions(t, AccountListOptions{}),
	})
	require.Nil(t, listRes.Err)
	names, ok := listRes.Response.([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, names)

	statusRes := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionStatus,
		Options: mustOptions(t, AccountStatusDeleteOptions{Name: "alice"}),
	})
	require.Nil(t, statusRes.Err)

	delRes := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionDelete,
		Options: mustOptions(t, AccountStatusDeleteOptions{Name: "alice"}),
	})
	require.Nil(t, delRes.Err)

	statusAfterDelete := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionStatus,
		Options: mustOptions(t, AccountStatusDeleteOptions{Name: "alice"}),
	})
	require.NotNil(t, statusAfterDelete.Err)
	assert.Equal(t, CodeNotFound, statusAfterDelete.Err.Code)
}

func TestDispatch_AccountAddDuplicateIsAlreadyExists(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	uid, gid := uint32(1000), uint32(1000)
	opts := mustOptions(t, AccountAddOptions{Name: "bob", NewBucketsPath: t.TempDir(), UID: &uid, GID: &gid})

	first := s.Dispatch(ctx, Request{Type: TypeAccount, Action: ActionAdd, Options: opts})
	require.Nil(t, first.Err)

	second := s.Dispatch(ctx, Request{Type: TypeAccount, Action: ActionAdd, Options: opts})
	require.NotNil(t, second.Err)
	assert.Equal(t, CodeAlreadyExists, second.Err.Code)
}

func TestDispatch_BucketRequiresExistingOwner(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res := s.Dispatch(ctx, Request{
		Type:   TypeBucket,
		Action: ActionAdd,
		Options: mustOptions(t, BucketAddOptions{
			Name:  "b1",
			Owner: "nonexistent",
			Path:  t.TempDir(),
		}),
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeInvalidArgument, res.Err.Code)
}

func TestDispatch_BucketAddListDelete(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	uid, gid := uint32(1000), uint32(1000)
	addAcct := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionAdd,
		Options: mustOptions(t, AccountAddOptions{Name: "owner1", NewBucketsPath: t.TempDir(), UID: &uid, GID: &gid}),
	})
	require.Nil(t, addAcct.Err)

	addBucket := s.Dispatch(ctx, Request{
		Type:   TypeBucket,
		Action: ActionAdd,
		Options: mustOptions(t, BucketAddOptions{
			Name:  "b1",
			Owner: "owner1",
			Path:  t.TempDir(),
		}),
	})
	require.Nil(t, addBucket.Err)

	listRes := s.Dispatch(ctx, Request{Type: TypeBucket, Action: ActionList, Options: mustOptions(t, BucketListOptions{Owner: "owner1"})})
	require.Nil(t, listRes.Err)
	names, ok := listRes.Response.([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"b1"}, names)

	delRes := s.Dispatch(ctx, Request{Type: TypeBucket, Action: ActionDelete, Options: mustOptions(t, BucketStatusDeleteOptions{Name: "b1"})})
	require.Nil(t, delRes.Err)
}

func TestDispatch_UpgradeStartStatusHistory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.cfs.WriteSystemFile([]byte(`{}`)))

	// Register a throwaway script so this Start call has something to
	// run; without it the compiled-in registry is empty here and Start
	// would take its no-op path, leaving history empty.
	upgrade.Register(upgrade.Script{
		Version:     "5.15.0",
		Description: "test migration",
		Run:         func(cfs *configfs.ConfigFS) error { return nil },
	})

	startRes := s.Dispatch(ctx, Request{
		Type:   TypeUpgrade,
		Action: ActionStart,
		Options: mustOptions(t, UpgradeStartOptions{
			ExpectedVersion:  "5.15.0",
			SkipVerification: true,
		}),
	})
	require.Nil(t, startRes.Err)

	statusRes := s.Dispatch(ctx, Request{Type: TypeUpgrade, Action: ActionStatus})
	require.Nil(t, statusRes.Err)

	historyRes := s.Dispatch(ctx, Request{Type: TypeUpgrade, Action: ActionHistory})
	require.Nil(t, historyRes.Err)
	history, ok := historyRes.Response.([]upgrade.InProgressUpgrade)
	require.True(t, ok)
	assert.Len(t, history, 1)
}

func TestDispatch_UnknownTypeIsInvalidRequest(t *testing.T) {
	s := newTestServer(t)
	res := s.Dispatch(context.Background(), Request{Type: RequestType("bogus")})
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeInvalidArgument, res.Err.Code)
}

func TestDispatch_GlacierRequiresConfiguredWALs(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res := s.Dispatch(ctx, Request{Type: TypeGlacier, Action: ActionMigrateRun})
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeInternal, res.Err.Code)

	res = s.Dispatch(ctx, Request{Type: TypeGlacier, Action: ActionRestoreRun})
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeInternal, res.Err.Code)
}

func TestDispatch_GlacierMigrateRun(t *testing.T) {
	cfs, err := configfs.New(t.TempDir(), configfs.BackendNone)
	require.NoError(t, err)
	ctl := upgrade.NewController(cfs, "", upgrade.Version("5.15.0"))

	walDir := t.TempDir()
	migrateWAL, err := glacierwal.Open(walDir, "migrate")
	require.NoError(t, err)
	defer migrateWAL.Close()
	restoreWAL, err := glacierwal.Open(walDir, "restore")
	require.NoError(t, err)
	defer restoreWAL.Close()

	s := NewServer(cfs, nil, ctl, glacier.NullBackend{}, migrateWAL, restoreWAL)
	ctx := context.Background()

	uid, gid := uint32(1000), uint32(1000)
	newBucketsPath := t.TempDir()
	addAcct := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionAdd,
		Options: mustOptions(t, AccountAddOptions{Name: "owner1", NewBucketsPath: newBucketsPath, UID: &uid, GID: &gid}),
	})
	require.Nil(t, addAcct.Err)

	bucketPath := t.TempDir()
	addBucket := s.Dispatch(ctx, Request{
		Type:    TypeBucket,
		Action:  ActionAdd,
		Options: mustOptions(t, BucketAddOptions{Name: "b1", Owner: "owner1", Path: bucketPath}),
	})
	require.Nil(t, addBucket.Err)

	objectPath := filepath.Join(bucketPath, "k1")
	require.NoError(t, os.WriteFile(objectPath, []byte("data"), 0600))
	require.NoError(t, glacierwal.RecordMigrate(migrateWAL, objectPath))
	_, err = migrateWAL.Swap()
	require.NoError(t, err)

	res := s.Dispatch(ctx, Request{Type: TypeGlacier, Action: ActionMigrateRun})
	require.Nil(t, res.Err)

	segments, err := migrateWAL.ListInactiveSegments()
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestDispatch_GlacierRestoreStartAndSweep(t *testing.T) {
	cfs, err := configfs.New(t.TempDir(), configfs.BackendNone)
	require.NoError(t, err)
	ctl := upgrade.NewController(cfs, "", upgrade.Version("5.15.0"))

	walDir := t.TempDir()
	migrateWAL, err := glacierwal.Open(walDir, "migrate")
	require.NoError(t, err)
	defer migrateWAL.Close()
	restoreWAL, err := glacierwal.Open(walDir, "restore")
	require.NoError(t, err)
	defer restoreWAL.Close()

	s := NewServer(cfs, nil, ctl, glacier.NullBackend{}, migrateWAL, restoreWAL)
	ctx := context.Background()

	uid, gid := uint32(1000), uint32(1000)
	newBucketsPath := t.TempDir()
	addAcct := s.Dispatch(ctx, Request{
		Type:    TypeAccount,
		Action:  ActionAdd,
		Options: mustOptions(t, AccountAddOptions{Name: "owner1", NewBucketsPath: newBucketsPath, UID: &uid, GID: &gid}),
	})
	require.Nil(t, addAcct.Err)

	bucketPath := t.TempDir()
	addBucket := s.Dispatch(ctx, Request{
		Type:    TypeBucket,
		Action:  ActionAdd,
		Options: mustOptions(t, BucketAddOptions{Name: "b1", Owner: "owner1", Path: bucketPath}),
	})
	require.Nil(t, addBucket.Err)

	objectPath := filepath.Join(bucketPath, "k1")
	require.NoError(t, os.WriteFile(objectPath, []byte("data"), 0600))

	startRes := s.Dispatch(ctx, Request{
		Type:    TypeGlacier,
		Action:  ActionRestoreStart,
		Options: mustOptions(t, GlacierRestoreStartOptions{Bucket: "b1", Key: "k1", Days: 1}),
	})
	require.Nil(t, startRes.Err)

	status, ok, err := glacierwal.GetRestoreStatus(objectPath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, status.Ongoing)

	_, err = restoreWAL.Swap()
	require.NoError(t, err)

	runRes := s.Dispatch(ctx, Request{Type: TypeGlacier, Action: ActionRestoreRun})
	require.Nil(t, runRes.Err)

	status, ok, err = glacierwal.GetRestoreStatus(objectPath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, status.Ongoing)
	require.NotNil(t, status.ExpiryTime)

	// Force expiry and confirm the sweep clears the status.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, glacierwal.SetRestoreStatus(objectPath, glacierwal.RestoreStatus{Ongoing: false, ExpiryTime: &past}))

	sweepRes := s.Dispatch(ctx, Request{Type: TypeGlacier, Action: ActionRestoreSweep})
	require.Nil(t, sweepRes.Err)

	_, ok, err = glacierwal.GetRestoreStatus(objectPath)
	require.NoError(t, err)
	assert.False(t, ok)
}
