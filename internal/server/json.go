package server

import (
	"bytes"

	"github.com/goccy/go-json"
)

// fiber's JSON hooks. Bodies and responses go through goccy/go-json.
var (
	encodeJSON = json.Marshal
	decodeJSON = json.Unmarshal
)

// decodeStrict decodes data into v, rejecting unknown fields.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func emptyBody(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}
