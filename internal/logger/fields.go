package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the control-plane
// packages (configfs, identity, upgrade, glacierwal, manageapi). Use these
// keys consistently so log aggregation and querying stays uniform.
const (
	// ========================================================================
	// Request / dispatch
	// ========================================================================
	KeyReqType   = "req_type"   // ManageAPI request type: account, bucket, upgrade, glacier
	KeyReqAction = "req_action" // ManageAPI action: add, update, list, status, delete
	KeyResult    = "result"     // Outcome: success, error

	// ========================================================================
	// Identity
	// ========================================================================
	KeyUID  = "uid"  // Resolved effective UID
	KeyGID  = "gid"  // Resolved effective GID
	KeyUser = "user" // Distinguished name or account user string

	// ========================================================================
	// ConfigFS
	// ========================================================================
	KeyConfigDir  = "config_dir"  // Config root directory
	KeyConfigPath = "config_path" // Path to a specific config file
	KeyBackend    = "backend"     // ConfigFS backend: none, gpfs

	// ========================================================================
	// Accounts / Buckets
	// ========================================================================
	KeyAccountID = "account_id" // nsfs_account _id
	KeyAccessKey = "access_key" // S3 access key (never log the secret key)
	KeyBucket    = "bucket"     // Bucket name
	KeyOwner     = "owner"      // Bucket owner account id

	// ========================================================================
	// Upgrade
	// ========================================================================
	KeyFromVersion = "from_version" // Version before an upgrade step
	KeyToVersion   = "to_version"   // Version after an upgrade step
	KeyPhase       = "phase"        // Upgrade phase: CONFIG_DIR_LOCKED, CONFIG_DIR_UNLOCKED
	KeyScript      = "script"       // Upgrade script name/path being run
	KeyHost        = "host"         // Hostname participating in a multi-host upgrade

	// ========================================================================
	// GlacierWAL
	// ========================================================================
	KeyWAL          = "wal"           // WAL name/category, e.g. "migrate", "restore"
	KeySegment      = "segment"       // WAL segment filename
	KeySegmentState = "segment_state" // active, inactive, processing, retired
	KeyRecords      = "records"       // Record count processed

	// ========================================================================
	// Filesystem operations (retained from the ambient file-lifecycle layer)
	// ========================================================================
	KeyPath    = "path"     // Full file/directory path
	KeyOldPath = "old_path" // Source path for rename operations
	KeyNewPath = "new_path" // Destination path for rename operations
	KeySize    = "size"     // File size in bytes

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"
)

// ----------------------------------------------------------------------------
// Request / dispatch
// ----------------------------------------------------------------------------

func ReqType(t string) slog.Attr   { return slog.String(KeyReqType, t) }
func ReqAction(a string) slog.Attr { return slog.String(KeyReqAction, a) }
func Result(r string) slog.Attr    { return slog.String(KeyResult, r) }

// ----------------------------------------------------------------------------
// Identity
// ----------------------------------------------------------------------------

func UID(uid uint32) slog.Attr   { return slog.Any(KeyUID, uid) }
func GID(gid uint32) slog.Attr   { return slog.Any(KeyGID, gid) }
func User(user string) slog.Attr { return slog.String(KeyUser, user) }

// ----------------------------------------------------------------------------
// ConfigFS
// ----------------------------------------------------------------------------

func ConfigDir(p string) slog.Attr  { return slog.String(KeyConfigDir, p) }
func ConfigPath(p string) slog.Attr { return slog.String(KeyConfigPath, p) }
func Backend(b string) slog.Attr    { return slog.String(KeyBackend, b) }

// ----------------------------------------------------------------------------
// Accounts / Buckets
// ----------------------------------------------------------------------------

func AccountID(id string) slog.Attr { return slog.String(KeyAccountID, id) }
func AccessKey(k string) slog.Attr  { return slog.String(KeyAccessKey, k) }
func Bucket(name string) slog.Attr  { return slog.String(KeyBucket, name) }
func Owner(id string) slog.Attr     { return slog.String(KeyOwner, id) }

// ----------------------------------------------------------------------------
// Upgrade
// ----------------------------------------------------------------------------

func FromVersion(v string) slog.Attr { return slog.String(KeyFromVersion, v) }
func ToVersion(v string) slog.Attr   { return slog.String(KeyToVersion, v) }
func Phase(p string) slog.Attr       { return slog.String(KeyPhase, p) }
func Script(s string) slog.Attr      { return slog.String(KeyScript, s) }
func Host(h string) slog.Attr        { return slog.String(KeyHost, h) }

// ----------------------------------------------------------------------------
// GlacierWAL
// ----------------------------------------------------------------------------

func WAL(name string) slog.Attr       { return slog.String(KeyWAL, name) }
func Segment(name string) slog.Attr   { return slog.String(KeySegment, name) }
func SegmentState(s string) slog.Attr { return slog.String(KeySegmentState, s) }
func Records(n int) slog.Attr         { return slog.Int(KeyRecords, n) }

// ----------------------------------------------------------------------------
// Filesystem operations
// ----------------------------------------------------------------------------

func Path(p string) slog.Attr    { return slog.String(KeyPath, p) }
func OldPath(p string) slog.Attr { return slog.String(KeyOldPath, p) }
func NewPath(p string) slog.Attr { return slog.String(KeyNewPath, p) }
func Size(s int64) slog.Attr     { return slog.Int64(KeySize, s) }

// ----------------------------------------------------------------------------
// Operation metadata
// ----------------------------------------------------------------------------

func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Attempt(n int) slog.Attr    { return slog.Int(KeyAttempt, n) }
func MaxRetries(n int) slog.Attr { return slog.Int(KeyMaxRetries, n) }

// Errf formats msg with err appended, for use in error return values that
// still want a single human-readable string (CLI error paths).
func Errf(msg string, err error) string {
	if err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, err)
}
