package page

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSnapshot is returned when a captured page cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed page snapshot")

// Document is an indexed, read-only page capture.
type Document struct {
	URL   string
	Title string
	Root  *Node

	ids       map[string]*Node
	idCounts  map[string]int
	labelsFor map[string][]*Node
	controls  []*Node
	texts     []*Node
}

// NewDocument links parent pointers below root and indexes the tree.
func NewDocument(root *Node) (*Document, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: no root node", ErrMalformedSnapshot)
	}

	d := &Document{
		Root:      root,
		ids:       make(map[string]*Node),
		idCounts:  make(map[string]int),
		labelsFor: make(map[string][]*Node),
	}
	root.Parent = nil
	d.index(root)
	return d, nil
}

func (d *Document) index(n *Node) {
	switch n.Kind {
	case TextNode:
		if strings.TrimSpace(n.Text) != "" {
			d.texts = append(d.texts, n)
		}
		return
	case ElementNode:
		if id := n.Attr("id"); id != "" {
			if _, seen := d.ids[id]; !seen {
				d.ids[id] = n
			}
			d.idCounts[id]++
		}
		if n.Tag == "label" {
			if target := n.Attr("for"); target != "" {
				d.labelsFor[target] = append(d.labelsFor[target], n)
			}
		}
		if IsFormControl(n) {
			d.controls = append(d.controls, n)
		}
		if ignoredTags[n.Tag] {
			return
		}
	}

	for _, c := range n.Children {
		c.Parent = n
		d.index(c)
	}
}

// IsFormControl reports whether n is an input, textarea or select element.
func IsFormControl(n *Node) bool {
	return n.IsElement("input", "textarea", "select")
}

// Controls returns the form controls in document order.
func (d *Document) Controls() []*Node {
	return d.controls
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *Node {
	return d.ids[id]
}

// LabelsFor returns the label elements whose for attribute names id.
func (d *Document) LabelsFor(id string) []*Node {
	if id == "" {
		return nil
	}
	return d.labelsFor[id]
}

// TextNodes returns the non-blank text nodes in document order.
func (d *Document) TextNodes() []*Node {
	return d.texts
}

// XPath returns an expression that selects n: an id lookup when the id is
// unique in the page, otherwise an indexed absolute path.
func (d *Document) XPath(n *Node) string {
	if n == nil {
		return ""
	}
	if id := n.Attr("id"); id != "" && d.idCounts[id] == 1 && !strings.Contains(id, `"`) {
		return `//*[@id="` + id + `"]`
	}

	var steps []string
	for cur := n; cur != nil && cur.Kind == ElementNode; cur = cur.Parent {
		pos, total := 0, 0
		if cur.Parent != nil {
			for _, sib := range cur.Parent.Children {
				if sib.Kind == ElementNode && sib.Tag == cur.Tag {
					total++
					if sib == cur {
						pos = total
					}
				}
			}
		}
		step := cur.Tag
		if total > 1 {
			step = fmt.Sprintf("%s[%d]", cur.Tag, pos)
		}
		steps = append(steps, step)
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}
