package glacier

import (
	"encoding/json"

	"github.com/nsfscore/nsfsctl/pkg/manageapi"
)

func requestFor(action manageapi.Action, opts any) manageapi.Request {
	var data json.RawMessage
	if opts != nil {
		data, _ = json.Marshal(opts)
	}
	return manageapi.Request{Type: manageapi.TypeGlacier, Action: action, Options: data}
}
