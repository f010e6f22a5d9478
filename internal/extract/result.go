package extract

import (
	"sort"
	"strings"
)

// Result maps a field key to its extracted value. Keys are canonical type
// names for generic extraction and on-page labels for label extraction.
// Values are never blank.
type Result map[string]string

// Set stores a trimmed value and reports whether it was kept.
func (r Result) Set(key, value string) bool {
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return false
	}
	r[key] = value
	return true
}

// Keys returns the keys in sorted order.
func (r Result) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of r.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
