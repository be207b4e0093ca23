// Package manageapi is the single programmatic entry point the CLI (and
// any other embedder) calls into: one dispatcher taking a
// (type, action, options) triple and returning a structured result that
// carries either a response or an error, never both.
package manageapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsfscore/nsfsctl/internal/logger"
	"github.com/nsfscore/nsfsctl/pkg/accounts"
	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/nsfscore/nsfsctl/pkg/glacier"
	"github.com/nsfscore/nsfsctl/pkg/glacierwal"
	"github.com/nsfscore/nsfsctl/pkg/upgrade"
)

// RequestType names the resource a request operates on.
type RequestType string

const (
	TypeAccount RequestType = "account"
	TypeBucket  RequestType = "bucket"
	TypeUpgrade RequestType = "upgrade"
	TypeGlacier RequestType = "glacier"
)

// Action names the operation requested within a RequestType.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionList   Action = "list"
	ActionStatus Action = "status"
	ActionDelete Action = "delete"
	ActionStart  Action = "start"
	ActionHistory Action = "history"

	// Glacier-specific actions: migrate_run drives migrate_wal's periodic
	// processor, restore_start records a restore_object request,
	// restore_run drives the restore WAL's processor, and restore_sweep
	// reverts expired restores.
	ActionMigrateRun   Action = "migrate_run"
	ActionRestoreStart Action = "restore_start"
	ActionRestoreRun   Action = "restore_run"
	ActionRestoreSweep Action = "restore_sweep"
)

// Request is the single call shape every ManageAPI operation takes.
// Options carries the action-specific fields as raw JSON so each handler
// can unmarshal into its own strongly typed option struct.
type Request struct {
	Type    RequestType     `json:"type"`
	Action  Action          `json:"action"`
	Options json.RawMessage `json:"options,omitempty"`
}

// APIError is the structured error shape returned on failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Result is returned by Dispatch. Exactly one of Response/Err is set.
type Result struct {
	Response any       `json:"response,omitempty"`
	Err      *APIError `json:"error,omitempty"`
}

// Error codes. Named after the error kinds spec'd for this control plane
// rather than invented HTTP-style codes, so a CLI or log consumer can
// match on the kind directly.
const (
	CodeInvalidArgument                   = "InvalidArgument"
	CodeInvalidArgumentType               = "InvalidArgumentType"
	CodeMissingIdentifier                 = "MissingIdentifier"
	CodeAlreadyExists                     = "AlreadyExists"
	CodeNotFound                          = "NotFound"
	CodeAccessDenied                      = "AccessDenied"
	CodeInaccessibleAccountNewBucketsPath = "InaccessibleAccountNewBucketsPath"
	CodeInvalidAccountDistinguishedName   = "InvalidAccountDistinguishedName"
	CodeAccountAccessKeyFlagComplexity    = "AccountAccessKeyFlagComplexity"
	CodeAccountSecretKeyFlagComplexity    = "AccountSecretKeyFlagComplexity"
	CodeAccountDeleteForbiddenHasBuckets  = "AccountDeleteForbiddenHasBuckets"
	CodeUpgradeFailed                     = "UpgradeFailed"
	CodeUpgradeStatusFailed               = "UpgradeStatusFailed"
	CodeUpgradeHistoryFailed              = "UpgradeHistoryFailed"
	CodeInvalidUpgradeAction              = "InvalidUpgradeAction"
	CodeIO                                = "IO"
	CodeMalformed                         = "Malformed"

	// CodeInternal is not one of the spec'd kinds; it covers failures that
	// are this server's fault (e.g. marshaling a document it built itself)
	// rather than the caller's or the filesystem's.
	CodeInternal = "Internal"
)

// Server holds the dependencies ManageAPI dispatches into.
type Server struct {
	cfs        *configfs.ConfigFS
	cache      *accounts.Cache
	upgradeCtl *upgrade.Controller
	glacier    glacier.Backend
	migrateWAL *glacierwal.WAL
	restoreWAL *glacierwal.WAL
}

// NewServer builds a Server over the given ConfigFS root and upgrade
// controller. backend may be nil, in which case glacier.NullBackend is
// used. migrateWAL/restoreWAL may be nil if this process doesn't drive
// glacier migrate/restore jobs (e.g. a CLI invocation that only manages
// accounts and buckets).
func NewServer(cfs *configfs.ConfigFS, cache *accounts.Cache, upgradeCtl *upgrade.Controller, backend glacier.Backend, migrateWAL, restoreWAL *glacierwal.WAL) *Server {
	if backend == nil {
		backend = glacier.NullBackend{}
	}
	return &Server{cfs: cfs, cache: cache, upgradeCtl: upgradeCtl, glacier: backend, migrateWAL: migrateWAL, restoreWAL: restoreWAL}
}

// Dispatch routes req to the handler for its (Type, Action) pair and
// always returns a Result, never an error: failures are reported inside
// Result.Err so callers (the CLI included) have one uniform shape to
// render regardless of outcome.
func (s *Server) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()
	lc := logger.NewLogContext(string(req.Type), string(req.Action))
	ctx = logger.WithContext(ctx, lc)

	result := s.dispatch(ctx, req)

	outcome := "success"
	if result.Err != nil {
		outcome = "error"
	}
	logger.InfoCtx(ctx, "manageapi dispatch", logger.Result(outcome), logger.DurationMs(lc.DurationMs()))
	recordDispatch(string(req.Type), string(req.Action), outcome)

	return result
}

func (s *Server) dispatch(ctx context.Context, req Request) Result {
	switch req.Type {
	case TypeAccount:
		return s.dispatchAccount(ctx, req)
	case TypeBucket:
		return s.dispatchBucket(ctx, req)
	case TypeUpgrade:
		return s.dispatchUpgrade(ctx, req)
	case TypeGlacier:
		return s.dispatchGlacier(ctx, req)
	default:
		return errResult(CodeInvalidArgument, fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func errResult(code, msg string) Result {
	return Result{Err: &APIError{Code: code, Message: msg}}
}

func okResult(response any) Result {
	return Result{Response: response}
}

func decodeOptions(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("manageapi: decode options: %w", err)
	}
	return nil
}
