// Package fill plans how extracted values are written back into a page.
//
// A plan is a list of actions addressed by XPath. The caller applies them
// through whatever page accessor it holds; this package never touches a
// page itself.
package fill

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/extract"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/page"
)

// ActionKind is the kind of write an Action performs.
type ActionKind string

const (
	ActionSetValue ActionKind = "value"
	ActionCheck    ActionKind = "check"
	ActionSelect   ActionKind = "select"
)

// Action writes one value into one control.
type Action struct {
	XPath   string     `json:"xpath"`
	Kind    ActionKind `json:"kind"`
	Value   string     `json:"value,omitempty"`
	Checked bool       `json:"checked,omitempty"`
	// Index is the option index for select actions.
	Index int `json:"index,omitempty"`
	// Key is the result key the value came from.
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

// Stats counts what a plan covers.
type Stats struct {
	Total   int `json:"total"`
	Filled  int `json:"filled"`
	Skipped int `json:"skipped"`
}

// Plan is the outcome of planning a fill.
type Plan struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Actions []Action `json:"actions"`
	Stats   Stats    `json:"stats"`
}

func newPlan(total int, actions []Action) Plan {
	if actions == nil {
		actions = []Action{}
	}
	stats := Stats{Total: total, Filled: len(actions), Skipped: total - len(actions)}
	return Plan{
		Success: stats.Filled > 0,
		Message: fmt.Sprintf("已填写 %d 个字段，跳过 %d 个字段", stats.Filled, stats.Skipped),
		Actions: actions,
		Stats:   stats,
	}
}

// Planner matches extraction results to page controls.
type Planner struct {
	classifier *fields.Classifier
}

// NewPlanner creates a planner. A nil classifier selects the default one.
func NewPlanner(c *fields.Classifier) *Planner {
	if c == nil {
		c = fields.NewClassifier(nil)
	}
	return &Planner{classifier: c}
}

// Plan matches result entries to descriptors in document order. Controls
// that are not fillable or already hold a value are skipped, and each
// result key fills at most one control.
func (p *Planner) Plan(descs []page.PageInputDescriptor, result extract.Result) Plan {
	aliases := newAliasMap(result)
	used := map[string]bool{}
	var actions []Action

	for _, d := range descs {
		if !d.IsFillable() || d.HasValue() {
			continue
		}
		f, ok := p.classifier.ClassifyEvidence(d.EvidenceText)
		if !ok {
			continue
		}

		for _, candidate := range []string{f.RawLabel, string(f.FieldType)} {
			key, found := aliases.lookup(candidate)
			if !found || used[key] {
				continue
			}
			if action, ok := actionFor(d, result[key]); ok {
				action.Key = key
				action.Label = f.RawLabel
				actions = append(actions, action)
				used[key] = true
				break
			}
		}
	}

	return newPlan(len(descs), actions)
}

func actionFor(d page.PageInputDescriptor, value string) (Action, bool) {
	switch {
	case d.IsChoice():
		if !choiceMatches(d, value) {
			return Action{}, false
		}
		return Action{XPath: d.XPath, Kind: ActionCheck, Checked: true}, true

	case d.ElementKind == page.KindSelect:
		idx, ok := matchOption(d.Options, value)
		if !ok {
			return Action{}, false
		}
		return Action{XPath: d.XPath, Kind: ActionSelect, Value: d.Options[idx].Value, Index: idx}, true

	case d.InputType == "date":
		date, ok := NormalizeDate(value)
		if !ok {
			return Action{}, false
		}
		return Action{XPath: d.XPath, Kind: ActionSetValue, Value: date}, true

	default:
		return Action{XPath: d.XPath, Kind: ActionSetValue, Value: value}, true
	}
}

var truthy = map[string]bool{"true": true, "yes": true, "on": true, "1": true, "是": true, "同意": true}

// choiceMatches compares value with the control's own value and its own
// label. Shared group captions further down the evidence are ignored.
func choiceMatches(d page.PageInputDescriptor, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	if strings.ToLower(d.CurrentValue) == v {
		return true
	}
	if len(d.EvidenceText) > 0 && strings.Contains(strings.ToLower(d.EvidenceText[0]), v) {
		return true
	}
	return d.InputType == "checkbox" && truthy[v]
}

// matchOption prefers an exact value or text match over a text substring.
func matchOption(opts []page.Option, value string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return 0, false
	}
	for i, o := range opts {
		if strings.ToLower(o.Value) == v || strings.ToLower(o.Text) == v {
			return i, true
		}
	}
	for i, o := range opts {
		if o.Text != "" && strings.Contains(strings.ToLower(o.Text), v) {
			return i, true
		}
	}
	return 0, false
}
