package page

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Snapshot is the JSON capture produced by the in-page capture script or by
// a host that serialises the live DOM itself.
type Snapshot struct {
	URL   string        `json:"url"`
	Title string        `json:"title"`
	Root  *SnapshotNode `json:"root"`
}

// SnapshotNode is one serialised node. Type is "element" or "text".
type SnapshotNode struct {
	Type          string            `json:"type"`
	Tag           string            `json:"tag,omitempty"`
	Text          string            `json:"text,omitempty"`
	Attrs         map[string]string `json:"attrs,omitempty"`
	Rect          *SnapshotRect     `json:"rect,omitempty"`
	Style         *Style            `json:"style,omitempty"`
	Value         string            `json:"value,omitempty"`
	Checked       bool              `json:"checked,omitempty"`
	Selected      bool              `json:"selected,omitempty"`
	SelectedIndex *int              `json:"selectedIndex,omitempty"`
	Disabled      bool              `json:"disabled,omitempty"`
	ReadOnly      bool              `json:"readOnly,omitempty"`
	Children      []*SnapshotNode   `json:"children,omitempty"`
}

// SnapshotRect mirrors DOMRect.
type SnapshotRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FromSnapshot decodes a JSON capture into a Document.
func FromSnapshot(data []byte) (*Document, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return snap.Document()
}

// Document converts the capture into an indexed Document.
func (s *Snapshot) Document() (*Document, error) {
	if s.Root == nil {
		return nil, fmt.Errorf("%w: no root node", ErrMalformedSnapshot)
	}
	root, err := convertSnapshot(s.Root, 0)
	if err != nil {
		return nil, err
	}
	if root.Kind != ElementNode {
		return nil, fmt.Errorf("%w: root is not an element", ErrMalformedSnapshot)
	}

	doc, err := NewDocument(root)
	if err != nil {
		return nil, err
	}
	doc.URL = s.URL
	doc.Title = s.Title
	return doc, nil
}

// maxSnapshotDepth bounds recursion on hostile input.
const maxSnapshotDepth = 512

func convertSnapshot(sn *SnapshotNode, depth int) (*Node, error) {
	if depth > maxSnapshotDepth {
		return nil, fmt.Errorf("%w: tree deeper than %d", ErrMalformedSnapshot, maxSnapshotDepth)
	}

	n := &Node{}
	switch sn.Type {
	case "text":
		n.Kind = TextNode
		n.Text = sn.Text
	case "element", "":
		if sn.Tag == "" {
			return nil, fmt.Errorf("%w: element without tag", ErrMalformedSnapshot)
		}
		n.Kind = ElementNode
		n.Tag = strings.ToLower(sn.Tag)
		n.Attrs = make(map[string]string, len(sn.Attrs))
		for k, v := range sn.Attrs {
			n.Attrs[strings.ToLower(k)] = v
		}
	default:
		return nil, fmt.Errorf("%w: unknown node type %q", ErrMalformedSnapshot, sn.Type)
	}

	if sn.Rect != nil {
		n.Rect = &Rect{
			Left:   sn.Rect.X,
			Top:    sn.Rect.Y,
			Right:  sn.Rect.X + sn.Rect.Width,
			Bottom: sn.Rect.Y + sn.Rect.Height,
		}
	}
	if sn.Style != nil {
		n.Style = *sn.Style
	}
	n.Value = sn.Value
	n.Checked = sn.Checked
	n.Selected = sn.Selected
	n.Disabled = sn.Disabled
	n.ReadOnly = sn.ReadOnly
	n.SelectedIndex = -1
	if sn.SelectedIndex != nil {
		n.SelectedIndex = *sn.SelectedIndex
	}

	for _, c := range sn.Children {
		if c == nil {
			continue
		}
		child, err := convertSnapshot(c, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
