package fill

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	time.RFC3339,
}

// NormalizeDate converts a date to the YYYY-MM-DD form date inputs accept.
func NormalizeDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}
