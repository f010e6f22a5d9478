package descriptions

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetToolDescription(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		contains string
	}{
		{name: "known tool", tool: "form_extract", contains: "**When to use:**"},
		{name: "short description", tool: "session_logout", contains: "Log out"},
		{name: "unknown tool", tool: "pdf_read_file", contains: "not available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, GetToolDescription(tt.tool), tt.contains)
		})
	}
}

func TestGetAllToolNames(t *testing.T) {
	names := GetAllToolNames()
	assert.Len(t, names, len(ToolDescriptions))
	assert.True(t, sort.StringsAreSorted(names))
}

func TestSummary(t *testing.T) {
	for _, name := range GetAllToolNames() {
		t.Run(name, func(t *testing.T) {
			summary := Summary(name)
			assert.NotEmpty(t, summary)
			assert.False(t, strings.Contains(summary, "\n"))
			assert.True(t, strings.HasPrefix(GetToolDescription(name), summary))
		})
	}
}
