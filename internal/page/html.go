package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML builds a Document from static markup. Geometry is unknown, so
// visibility is decided by inline styles, the hidden attribute and tags.
func ParseHTML(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var top *Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			top = convertHTML(c)
			break
		}
	}
	if top == nil {
		return nil, fmt.Errorf("%w: document has no root element", ErrMalformedSnapshot)
	}

	doc, err := NewDocument(top)
	if err != nil {
		return nil, err
	}
	for _, n := range doc.Controls() {
		applyMarkupState(n)
	}
	if t := findFirst(top, "title"); t != nil {
		doc.Title = ownText(t)
	}
	return doc, nil
}

// ownText joins the direct text children of n. Tags such as title are
// skipped by the visible-text walk, so their text is read here.
func ownText(n *Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		if c.Kind == TextNode {
			b.WriteString(c.Text)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ParseHTMLString is ParseHTML over a string.
func ParseHTMLString(s string) (*Document, error) {
	return ParseHTML(strings.NewReader(s))
}

func convertHTML(h *html.Node) *Node {
	switch h.Type {
	case html.TextNode:
		return &Node{Kind: TextNode, Text: h.Data}
	case html.ElementNode:
		n := &Node{
			Kind:  ElementNode,
			Tag:   strings.ToLower(h.Data),
			Attrs: make(map[string]string, len(h.Attr)),
		}
		for _, a := range h.Attr {
			n.Attrs[strings.ToLower(a.Key)] = a.Val
		}
		n.Style = parseInlineStyle(n.Attrs["style"])
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if child := convertHTML(c); child != nil {
				n.Children = append(n.Children, child)
			}
		}
		return n
	default:
		return nil
	}
}

func parseInlineStyle(s string) Style {
	var st Style
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "display":
			st.Display = val
		case "visibility":
			st.Visibility = val
		case "opacity":
			st.Opacity = val
		}
	}
	return st
}

// applyMarkupState derives live form state from attributes.
func applyMarkupState(n *Node) {
	n.Disabled = n.HasAttr("disabled") || inDisabledFieldset(n)
	n.ReadOnly = n.HasAttr("readonly")

	switch n.Tag {
	case "input":
		n.Value = n.Attr("value")
		n.Checked = n.HasAttr("checked")
	case "textarea":
		n.Value = n.TextContent()
	case "select":
		n.SelectedIndex = -1
		for i, opt := range options(n) {
			opt.Selected = opt.HasAttr("selected")
			if opt.Selected && n.SelectedIndex < 0 {
				n.SelectedIndex = i
			}
		}
		if n.SelectedIndex < 0 && len(options(n)) > 0 {
			n.SelectedIndex = 0
		}
	}
}

func inDisabledFieldset(n *Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.IsElement("fieldset") && cur.HasAttr("disabled") {
			return true
		}
	}
	return false
}

// options returns the option elements of a select, including grouped ones.
func options(sel *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			switch {
			case c.IsElement("option"):
				out = append(out, c)
			case c.IsElement("optgroup"):
				walk(c)
			}
		}
	}
	walk(sel)
	return out
}

func findFirst(n *Node, tag string) *Node {
	if n.IsElement(tag) {
		return n
	}
	for _, c := range n.Children {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}
