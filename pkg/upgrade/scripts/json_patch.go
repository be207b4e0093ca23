package scripts

import "encoding/json"

// hasVersioningField reports whether a raw bucket config document already
// carries a "versioning" key, so backfillBucketVersioning stays idempotent
// across repeated upgrade attempts.
func hasVersioningField(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return true // leave malformed documents alone rather than guess
	}
	_, ok := probe["versioning"]
	return ok
}

// addVersioningField sets "versioning":"DISABLED" on a raw bucket config
// document that predates the field's introduction.
func addVersioningField(data []byte) []byte {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return data
	}
	doc["versioning"] = json.RawMessage(`"DISABLED"`)
	patched, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return data
	}
	return patched
}
