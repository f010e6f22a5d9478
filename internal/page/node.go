// Package page models a captured web page: an immutable node tree with the
// styling, geometry and form state needed to describe form controls.
package page

import (
	"strings"
)

// NodeKind distinguishes element nodes from text nodes.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
)

// Rect is a rendered bounding box in CSS pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the box width.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the box height.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Style holds the visibility-related style properties of an element. Empty
// fields mean the property was not specified.
type Style struct {
	Display    string `json:"display,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	Opacity    string `json:"opacity,omitempty"`
}

// Node is one element or text node of a captured page.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Node
	Parent   *Node

	// Rect is nil when the capture carried no geometry.
	Rect  *Rect
	Style Style

	// Live form state. HTML captures derive these from attributes.
	Value         string
	Checked       bool
	Selected      bool
	SelectedIndex int
	Disabled      bool
	ReadOnly      bool
}

// ignoredTags never contribute visible text.
var ignoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"meta":     true,
	"link":     true,
	"head":     true,
	"template": true,
	"title":    true,
}

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(name string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[name]
	return ok
}

// IsElement reports whether n is an element with one of the given tags.
func (n *Node) IsElement(tags ...string) bool {
	if n == nil || n.Kind != ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Tag == t {
			return true
		}
	}
	return false
}

// IsVisible reports whether the node is rendered. A node is hidden when it
// or an ancestor is display:none, opacity 0, carries the hidden attribute or
// sits inside a non-rendered tag, when the nearest specified visibility is
// hidden or collapse, or when its captured box has no area.
func (n *Node) IsVisible() bool {
	if n == nil {
		return false
	}
	if n.IsElement("input") && strings.EqualFold(n.Attr("type"), "hidden") {
		return false
	}

	visibilityDecided := false
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind != ElementNode {
			continue
		}
		if ignoredTags[cur.Tag] || cur.HasAttr("hidden") {
			return false
		}
		if strings.EqualFold(cur.Style.Display, "none") {
			return false
		}
		if isZeroOpacity(cur.Style.Opacity) {
			return false
		}
		if !visibilityDecided && cur.Style.Visibility != "" {
			v := strings.ToLower(cur.Style.Visibility)
			if v == "hidden" || v == "collapse" {
				return false
			}
			visibilityDecided = true
		}
	}

	if n.Rect != nil && (n.Rect.Width() <= 0 || n.Rect.Height() <= 0) {
		return false
	}
	return true
}

func isZeroOpacity(s string) bool {
	s = strings.TrimSpace(s)
	return s == "0" || s == "0.0" || s == "0%"
}

// VisibleText returns the whitespace-collapsed text of the visible text
// nodes below n.
func (n *Node) VisibleText() string {
	var parts []string
	n.walkText(func(t *Node) {
		if t.IsVisible() {
			if s := strings.TrimSpace(t.Text); s != "" {
				parts = append(parts, s)
			}
		}
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// TextContent returns all descendant text regardless of visibility.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.walkText(func(t *Node) { b.WriteString(t.Text) })
	return b.String()
}

func (n *Node) walkText(fn func(*Node)) {
	if n == nil {
		return
	}
	if n.Kind == TextNode {
		fn(n)
		return
	}
	if ignoredTags[n.Tag] {
		return
	}
	for _, c := range n.Children {
		c.walkText(fn)
	}
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n == nil || n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}
