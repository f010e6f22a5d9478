package page

import "strings"

// ElementKind is the tag family of a form control.
type ElementKind string

const (
	KindInput    ElementKind = "input"
	KindTextarea ElementKind = "textarea"
	KindSelect   ElementKind = "select"
)

// Option is one choice of a select control.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected,omitempty"`
}

// PageInputDescriptor is a read-only description of one form control taken
// from a single scan. Every field is always present; absent attributes are
// empty strings or false.
type PageInputDescriptor struct {
	ElementKind   ElementKind `json:"elementKind"`
	InputType     string      `json:"inputType"`
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Placeholder   string      `json:"placeholder"`
	IsRequired    bool        `json:"isRequired"`
	IsVisible     bool        `json:"isVisible"`
	IsDisabled    bool        `json:"isDisabled"`
	IsReadOnly    bool        `json:"isReadOnly"`
	EvidenceText  []string    `json:"evidenceText"`
	AfterText     []string    `json:"afterText,omitempty"`
	CurrentValue  string      `json:"currentValue"`
	Checked       bool        `json:"checked"`
	SelectedIndex int         `json:"selectedIndex"`
	Options       []Option    `json:"options,omitempty"`
	XPath         string      `json:"xpath"`
}

// buttonTypes are input types that never hold user data.
var buttonTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

// IsDataControl reports whether n is a form control that can hold user data.
func IsDataControl(n *Node) bool {
	if !IsFormControl(n) {
		return false
	}
	if n.Tag == "input" {
		return !buttonTypes[inputType(n)]
	}
	return true
}

func inputType(n *Node) string {
	switch n.Tag {
	case "textarea":
		return "textarea"
	case "select":
		if n.HasAttr("multiple") {
			return "select-multiple"
		}
		return "select-one"
	}
	t := strings.ToLower(strings.TrimSpace(n.Attr("type")))
	if t == "" {
		return "text"
	}
	return t
}

// Describe captures the attributes and state of control n. Evidence is
// left empty for the caller to fill.
func (d *Document) Describe(n *Node) PageInputDescriptor {
	desc := PageInputDescriptor{
		ElementKind:   ElementKind(n.Tag),
		InputType:     inputType(n),
		ID:            n.Attr("id"),
		Name:          n.Attr("name"),
		Placeholder:   n.Attr("placeholder"),
		IsRequired:    n.HasAttr("required") || strings.EqualFold(n.Attr("aria-required"), "true"),
		IsVisible:     n.IsVisible(),
		IsDisabled:    n.Disabled || n.HasAttr("disabled"),
		IsReadOnly:    n.ReadOnly || n.HasAttr("readonly"),
		CurrentValue:  n.Value,
		Checked:       n.Checked,
		SelectedIndex: n.SelectedIndex,
		XPath:         d.XPath(n),
	}

	if n.Tag == "select" {
		for _, opt := range options(n) {
			text := strings.Join(strings.Fields(opt.TextContent()), " ")
			value := text
			if opt.HasAttr("value") {
				value = opt.Attr("value")
			}
			desc.Options = append(desc.Options, Option{Value: value, Text: text, Selected: opt.Selected})
		}
		if desc.CurrentValue == "" && desc.SelectedIndex >= 0 && desc.SelectedIndex < len(desc.Options) {
			desc.CurrentValue = desc.Options[desc.SelectedIndex].Value
		}
	}

	return desc
}

// IsFillable reports whether the control is visible and editable.
func (p PageInputDescriptor) IsFillable() bool {
	return p.IsVisible && !p.IsDisabled && !p.IsReadOnly
}

// IsChoice reports whether the control is a checkbox or radio button.
func (p PageInputDescriptor) IsChoice() bool {
	return p.ElementKind == KindInput && (p.InputType == "checkbox" || p.InputType == "radio")
}

// HasValue reports whether the control already holds user data: a checked
// choice, a select moved off its first option, or a non-blank value.
func (p PageInputDescriptor) HasValue() bool {
	switch {
	case p.IsChoice():
		return p.Checked
	case p.ElementKind == KindSelect:
		return p.SelectedIndex > 0
	default:
		return strings.TrimSpace(p.CurrentValue) != ""
	}
}
