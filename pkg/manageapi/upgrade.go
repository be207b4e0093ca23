package manageapi

import (
	"context"
	"fmt"

	"github.com/nsfscore/nsfsctl/pkg/upgrade"
)

// UpgradeStartOptions are the options for `upgrade start`.
type UpgradeStartOptions struct {
	ExpectedVersion  string   `json:"expected_version"`
	ExpectedHosts    []string `json:"expected_hosts,omitempty"`
	SkipVerification bool     `json:"skip_verification,omitempty"`
}

func (s *Server) dispatchUpgrade(ctx context.Context, req Request) Result {
	if s.upgradeCtl == nil {
		return errResult(CodeInternal, "upgrade controller not configured")
	}
	switch req.Action {
	case ActionStart:
		var opts UpgradeStartOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.upgradeStart(ctx, opts)
	case ActionStatus:
		return s.upgradeStatus()
	case ActionHistory:
		return s.upgradeHistory()
	default:
		return errResult(CodeInvalidUpgradeAction, fmt.Sprintf("unknown upgrade action %q", req.Action))
	}
}

func (s *Server) upgradeStart(ctx context.Context, opts UpgradeStartOptions) Result {
	if opts.ExpectedVersion == "" {
		return errResult(CodeUpgradeFailed, "expected_version is required")
	}
	result, err := s.upgradeCtl.Start(ctx, upgrade.StartOptions{
		ExpectedVersion:  upgrade.Version(opts.ExpectedVersion),
		ExpectedHosts:    opts.ExpectedHosts,
		SkipVerification: opts.SkipVerification,
	})
	if err != nil {
		return errResult(CodeUpgradeFailed, err.Error())
	}
	return okResult(result)
}

func (s *Server) upgradeStatus() Result {
	status, err := s.upgradeCtl.Status()
	if err != nil {
		return errResult(CodeUpgradeStatusFailed, err.Error())
	}
	return okResult(status)
}

func (s *Server) upgradeHistory() Result {
	history, err := s.upgradeCtl.History()
	if err != nil {
		return errResult(CodeUpgradeHistoryFailed, err.Error())
	}
	return okResult(history)
}
