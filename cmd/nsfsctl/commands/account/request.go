package account

import (
	"encoding/json"

	"github.com/nsfscore/nsfsctl/pkg/manageapi"
)

// requestFor marshals opts and builds the account-typed ManageAPI request
// for action. Marshal errors can't happen for the option structs this
// package defines, so they're folded into an empty options payload rather
// than plumbed through every caller.
func requestFor(action manageapi.Action, opts any) manageapi.Request {
	data, _ := json.Marshal(opts)
	return manageapi.Request{Type: manageapi.TypeAccount, Action: action, Options: data}
}
