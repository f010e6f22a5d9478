package resolver

import (
	"errors"
	"sort"

	"github.com/a3tai/mcp-form-filler/internal/llm"
)

func isUnparseable(err error) bool {
	return errors.Is(err, llm.ErrUnparseable)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
