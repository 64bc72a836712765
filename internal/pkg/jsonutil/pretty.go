package jsonutil

import (
	"encoding/json"
	"strings"
)

// Pretty indents a raw JSON document; invalid input is returned trimmed and untouched.
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(buf)
}

// Indent marshals v with two-space indentation.
func Indent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
