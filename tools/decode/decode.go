package decode

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Payload decodes a raw JSON event payload into T. Unknown fields are
// ignored; weak typing tolerates clients sending numbers as strings.
func Payload[T any](raw json.RawMessage) (*T, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return Struct[T](m)
}

// Struct decodes a generic map into T via mapstructure.
func Struct[T any](m map[string]any) (*T, error) {
	out := new(T)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, err
	}
	return out, nil
}
