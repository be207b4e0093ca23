package bucket

import (
	"encoding/json"

	"github.com/nsfscore/nsfsctl/pkg/manageapi"
)

func requestFor(action manageapi.Action, opts any) manageapi.Request {
	data, _ := json.Marshal(opts)
	return manageapi.Request{Type: manageapi.TypeBucket, Action: action, Options: data}
}
