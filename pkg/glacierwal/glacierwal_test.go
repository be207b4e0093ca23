package glacierwal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsfscore/nsfsctl/pkg/glacier"
)

func TestAppendAndReadRecords(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "migrate")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append([]byte(`{"op":"migrate","key":"a"}`)))
	require.NoError(t, w.Append([]byte(`{"op":"migrate","key":"b"}`)))
	require.NoError(t, w.Close())

	var got []string
	err = ReadRecords(filepath.Join(dir, "migrate.active"), func(record []byte) error {
		got = append(got, string(record))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"op":"migrate","key":"a"}`, `{"op":"migrate","key":"b"}`}, got)
}

func TestSwap_EmptyActiveIsNoOp(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "migrate")
	require.NoError(t, err)
	defer w.Close()

	path, err := w.Swap()
	require.NoError(t, err)
	assert.Equal(t, "", path)

	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	assert.Empty(t, segments)

	// Double-swap with no append in between stays a no-op.
	path, err = w.Swap()
	require.NoError(t, err)
	assert.Equal(t, "", path)
}

func TestSwap_MovesRecordsToInactiveWithIncreasingGenerations(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "migrate")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append([]byte("record-1")))
	first, err := w.Swap()
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, filepath.Join(dir, "migrate.inactive.1"), first)

	n, err := CountRecords(first)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, w.Append([]byte("record-2")))
	second, err := w.Swap()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "migrate.inactive.2"), second)

	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, segments)
}

func TestProcessInactive_RetiresSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "restore")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append([]byte("r1")))
	_, err = w.Swap()
	require.NoError(t, err)

	var processed []string
	err = w.ProcessInactive(func(segmentPath string) bool {
		n, rerr := CountRecords(segmentPath)
		require.NoError(t, rerr)
		processed = append(processed, segmentPath)
		return n == 1
	})
	require.NoError(t, err)
	require.Len(t, processed, 1)

	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	assert.Empty(t, segments)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	foundRetired := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "restore.retired.") {
			foundRetired = true
		}
	}
	assert.True(t, foundRetired)
}

func TestProcessInactive_RetainsSegmentOnFailure(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "restore")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append([]byte("r1")))
	_, err = w.Swap()
	require.NoError(t, err)

	calls := 0
	err = w.ProcessInactive(func(segmentPath string) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, filepath.Join(dir, "restore.inactive.1"), segments[0])
}

func TestProcessInactive_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "restore")
	require.NoError(t, err)
	defer w.Close()

	called := false
	err = w.ProcessInactive(func(segmentPath string) bool {
		called = true
		return true
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRestoreStatus_SetGetClearRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restored-object")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	expiry := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	require.NoError(t, SetRestoreStatus(path, RestoreStatus{Ongoing: false, ExpiryTime: &expiry}))

	got, ok, err := GetRestoreStatus(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Ongoing)
	require.NotNil(t, got.ExpiryTime)
	assert.WithinDuration(t, expiry, *got.ExpiryTime, time.Second)

	require.NoError(t, ClearRestoreStatus(path))
	_, ok, err = GetRestoreStatus(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeBackend struct {
	shouldMigrate map[string]bool
	migrateErr    map[string]error
	restoreErr    map[string]error
	migrated      []glacier.ObjectRef
	restored      []glacier.ObjectRef
	expired       []glacier.ObjectRef
}

func (b *fakeBackend) key(ref glacier.ObjectRef) string { return ref.Bucket + "/" + ref.Key }

func (b *fakeBackend) ShouldMigrate(ctx context.Context, ref glacier.ObjectRef) (bool, error) {
	if b.shouldMigrate == nil {
		return true, nil
	}
	return b.shouldMigrate[b.key(ref)], nil
}

func (b *fakeBackend) Migrate(ctx context.Context, ref glacier.ObjectRef) error {
	if err := b.migrateErr[b.key(ref)]; err != nil {
		return err
	}
	b.migrated = append(b.migrated, ref)
	return nil
}

func (b *fakeBackend) Restore(ctx context.Context, ref glacier.ObjectRef, availableFor glacier.ObjectAvailability) error {
	if err := b.restoreErr[b.key(ref)]; err != nil {
		return err
	}
	b.restored = append(b.restored, ref)
	return nil
}

func (b *fakeBackend) ProcessExpired(ctx context.Context, ref glacier.ObjectRef) error {
	b.expired = append(b.expired, ref)
	return nil
}

var _ glacier.Backend = (*fakeBackend)(nil)

func pathResolver(refs map[string]glacier.ObjectRef) ResolveRef {
	return func(path string) (glacier.ObjectRef, error) {
		ref, ok := refs[path]
		if !ok {
			return glacier.ObjectRef{}, fmt.Errorf("no ref for %s", path)
		}
		return ref, nil
	}
}

func TestRecordMigrate_WritesBarePaths(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "migrate")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, RecordMigrate(w, "/obj/a"))
	require.NoError(t, RecordMigrate(w, "/obj/b"))
	require.NoError(t, RecordMigrate(w, "/obj/c"))
	segment, err := w.Swap()
	require.NoError(t, err)

	var got []string
	require.NoError(t, ReadRecords(segment, func(record []byte) error {
		got = append(got, string(record))
		return nil
	}))
	assert.Equal(t, []string{"/obj/a", "/obj/b", "/obj/c"}, got)
}

func TestRunMigrateJob_RetiresSegmentWhenAllMigrate(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "migrate")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, RecordMigrate(w, "/obj/a"))
	require.NoError(t, RecordMigrate(w, "/obj/b"))
	_, err = w.Swap()
	require.NoError(t, err)

	resolve := pathResolver(map[string]glacier.ObjectRef{
		"/obj/a": {Bucket: "b1", Key: "a"},
		"/obj/b": {Bucket: "b1", Key: "b"},
	})
	backend := &fakeBackend{}
	require.NoError(t, RunMigrateJob(context.Background(), w, backend, resolve))

	assert.Len(t, backend.migrated, 2)
	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestRunMigrateJob_RetainsSegmentOnPartialFailure(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "migrate")
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, RecordMigrate(w, "/obj/a"))
	require.NoError(t, RecordMigrate(w, "/obj/b"))
	_, err = w.Swap()
	require.NoError(t, err)

	resolve := pathResolver(map[string]glacier.ObjectRef{
		"/obj/a": {Bucket: "b1", Key: "a"},
		"/obj/b": {Bucket: "b1", Key: "b"},
	})
	boom := assert.AnError
	backend := &fakeBackend{migrateErr: map[string]error{"b1/b": boom}}
	require.NoError(t, RunMigrateJob(context.Background(), w, backend, resolve))

	assert.Equal(t, []glacier.ObjectRef{{Bucket: "b1", Key: "a"}}, backend.migrated)

	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	require.Len(t, segments, 1)

	// The retried segment still carries both original bare paths.
	var paths []string
	require.NoError(t, ReadRecords(segments[0], func(record []byte) error {
		paths = append(paths, string(record))
		return nil
	}))
	assert.Equal(t, []string{"/obj/a", "/obj/b"}, paths)
}

func TestRunRestoreJob_SetsRestoreStatusOnSuccess(t *testing.T) {
	dir := t.TempDir()
	objDir := t.TempDir()
	w, err := Open(dir, "restore")
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(objDir, "restored-object")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	entry := RestoreEntry{Path: path, Bucket: "b1", Key: "k1", Days: 3}
	require.NoError(t, RestoreObject(w, entry))

	status, ok, err := GetRestoreStatus(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, status.Ongoing)

	_, err = w.Swap()
	require.NoError(t, err)

	backend := &fakeBackend{}
	now := time.Now()
	require.NoError(t, RunRestoreJob(context.Background(), w, backend, now))

	status, ok, err = GetRestoreStatus(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, status.Ongoing)
	require.NotNil(t, status.ExpiryTime)
	assert.WithinDuration(t, now.Add(3*24*time.Hour), *status.ExpiryTime, time.Second)

	segments, err := w.ListInactiveSegments()
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestSweepExpiredRestores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restored-object")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	expiry := time.Now().Add(-time.Hour)
	require.NoError(t, SetRestoreStatus(path, RestoreStatus{Ongoing: false, ExpiryTime: &expiry}))

	ref := glacier.ObjectRef{Bucket: "b1", Key: "k1"}
	backend := &fakeBackend{}
	err := SweepExpiredRestores(context.Background(), backend, time.Now(), []glacier.ObjectRef{ref}, func(r glacier.ObjectRef) (string, error) {
		return path, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []glacier.ObjectRef{ref}, backend.expired)

	_, ok, err := GetRestoreStatus(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepExpiredRestores_SkipsOngoingAndNotYetExpired(t *testing.T) {
	dir := t.TempDir()
	ongoingPath := filepath.Join(dir, "ongoing-object")
	notYetPath := filepath.Join(dir, "not-yet-object")
	require.NoError(t, os.WriteFile(ongoingPath, []byte("data"), 0600))
	require.NoError(t, os.WriteFile(notYetPath, []byte("data"), 0600))

	require.NoError(t, SetRestoreStatus(ongoingPath, RestoreStatus{Ongoing: true}))
	future := time.Now().Add(time.Hour)
	require.NoError(t, SetRestoreStatus(notYetPath, RestoreStatus{Ongoing: false, ExpiryTime: &future}))

	refs := []glacier.ObjectRef{{Bucket: "b1", Key: "ongoing"}, {Bucket: "b1", Key: "not-yet"}}
	paths := map[string]string{"b1/ongoing": ongoingPath, "b1/not-yet": notYetPath}

	backend := &fakeBackend{}
	err := SweepExpiredRestores(context.Background(), backend, time.Now(), refs, func(r glacier.ObjectRef) (string, error) {
		return paths[r.Bucket+"/"+r.Key], nil
	})
	require.NoError(t, err)
	assert.Empty(t, backend.expired)
}
