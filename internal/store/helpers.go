package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

// marshalIndices converts []int to JSON text for storage.
func marshalIndices(idx []int) string {
	if len(idx) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(idx)
	return string(b)
}

// unmarshalIndices converts JSON text back to []int.
func unmarshalIndices(s string) []int {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var idx []int
	_ = json.Unmarshal([]byte(s), &idx)
	return idx
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
