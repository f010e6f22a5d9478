// Package evidence gathers the text around a form control that tells a
// reader what the control is for.
package evidence

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a3tai/mcp-form-filler/internal/page"
)

const (
	DefaultMaxResults = 3
	MaxResultsLimit   = 5
	DefaultMaxDepth   = 5
	// MaxTextLength drops running prose; labels are short.
	MaxTextLength = 100
)

// Geometry windows for the positional pass, in CSS pixels.
const (
	nearbyHorizontal = 300.0
	nearbyBelowTop   = 50.0
	nearbyAboveTop   = 150.0
	leftVertical     = 100.0
	maxAboveGap      = 200.0
	verticalWeight   = 2.0
	notAbovePenalty  = 50.0
)

// Collector produces ordered evidence strings for form controls.
type Collector struct {
	MaxResults int
	MaxDepth   int
}

// NewCollector returns a collector with the cap clamped to 1..MaxResultsLimit.
func NewCollector(maxResults, maxDepth int) *Collector {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Collector{MaxResults: maxResults, MaxDepth: maxDepth}
}

// Evidence is the text found on both sides of a control.
type Evidence struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// run holds per-call state.
type run struct {
	doc     *page.Document
	el      *page.Node
	max     int
	texts   []string
	seen    map[string]bool
	visited map[*page.Node]bool
}

func (c *Collector) newRun(doc *page.Document, el *page.Node) *run {
	return &run{
		doc:     doc,
		el:      el,
		max:     c.MaxResults,
		seen:    make(map[string]bool),
		visited: make(map[*page.Node]bool),
	}
}

func (r *run) full() bool {
	return len(r.texts) >= r.max
}

func (r *run) add(text string) {
	if r.full() {
		return
	}
	text = strings.Join(strings.Fields(text), " ")
	if !hasWordRune(text) || utf8.RuneCountInString(text) > MaxTextLength || r.seen[text] {
		return
	}
	r.seen[text] = true
	r.texts = append(r.texts, text)
}

// hasWordRune rejects strings made only of punctuation such as a lone "*".
func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// Collect returns up to MaxResults distinct, trimmed evidence strings for el,
// most authoritative first.
func (c *Collector) Collect(doc *page.Document, el *page.Node) []string {
	r := c.newRun(doc, el)

	r.explicitLabels()
	r.wrappingLabel()
	r.precedingSiblings(c.MaxDepth)
	if !r.full() && el.Rect != nil {
		r.positional()
	}
	if len(r.texts) == 0 {
		r.attributes()
	}

	if r.texts == nil {
		return []string{}
	}
	return r.texts
}

// CollectAround returns Collect's result plus the text that follows el.
func (c *Collector) CollectAround(doc *page.Document, el *page.Node) Evidence {
	after := c.newRun(doc, el)
	after.followingSiblings(c.MaxDepth)

	ev := Evidence{Before: c.Collect(doc, el), After: after.texts}
	if ev.After == nil {
		ev.After = []string{}
	}
	return ev
}

func (r *run) explicitLabels() {
	for _, label := range r.doc.LabelsFor(r.el.Attr("id")) {
		if r.full() {
			return
		}
		r.visited[label] = true
		if label.IsVisible() {
			r.add(textOf(label, nil))
		}
	}
}

// wrappingLabel uses only the label text that precedes the control.
func (r *run) wrappingLabel() {
	for cur := r.el.Parent; cur != nil; cur = cur.Parent {
		if !cur.IsElement("label") {
			continue
		}
		if r.visited[cur] {
			return
		}
		r.visited[cur] = true
		if !cur.IsVisible() {
			return
		}
		var parts []string
		walkBefore(cur, r.el, func(t *page.Node) {
			if t.IsVisible() {
				parts = append(parts, t.Text)
			}
		})
		r.add(strings.Join(parts, " "))
		return
	}
}

// walkBefore visits visible text nodes under root that come before stop in
// document order. It reports whether stop was reached.
func walkBefore(root, stop *page.Node, fn func(*page.Node)) bool {
	for _, c := range root.Children {
		if c == stop {
			return true
		}
		if c.Kind == page.TextNode {
			fn(c)
			continue
		}
		if page.IsFormControl(c) {
			continue
		}
		if walkBefore(c, stop, fn) {
			return true
		}
	}
	return false
}

// precedingSiblings walks backwards from el through its siblings, then from
// its parent through the parent's siblings, up to maxDepth levels.
func (r *run) precedingSiblings(maxDepth int) {
	cur := r.el
	for depth := 0; depth <= maxDepth && cur.Parent != nil && !r.full(); depth++ {
		parent := cur.Parent
		// Page-level text is only worth reading when nothing closer was found.
		if depth > 0 && len(r.texts) > 0 && parent.IsElement("body", "html") {
			return
		}
		if !r.visited[parent] {
			r.visited[parent] = true
			for i := cur.Index() - 1; i >= 0 && !r.full(); i-- {
				r.takeSibling(parent.Children[i])
			}
		}
		cur = parent
	}
}

// followingSiblings mirrors precedingSiblings and stops at the next control.
func (r *run) followingSiblings(maxDepth int) {
	cur := r.el
	for depth := 0; depth <= maxDepth && cur.Parent != nil && !r.full(); depth++ {
		parent := cur.Parent
		r.visited[parent] = true
		for i := cur.Index() + 1; i < len(parent.Children) && !r.full(); i++ {
			sib := parent.Children[i]
			if holdsControl(sib, r.el) {
				return
			}
			r.takeSibling(sib)
		}
		cur = parent
	}
}

func (r *run) takeSibling(sib *page.Node) {
	if r.visited[sib] {
		return
	}
	r.visited[sib] = true

	switch {
	case sib.Kind == page.TextNode:
		if sib.IsVisible() {
			r.add(sib.Text)
		}
	case page.IsFormControl(sib), holdsControl(sib, r.el), isForeignLabel(sib, r.el):
	case sib.IsVisible():
		r.add(textOf(sib, nil))
	}
}

// holdsControl reports whether n is or contains a data control other than self.
func holdsControl(n, self *page.Node) bool {
	if n == self || n.Kind != page.ElementNode {
		return false
	}
	if page.IsDataControl(n) {
		return n.IsVisible()
	}
	for _, c := range n.Children {
		if holdsControl(c, self) {
			return true
		}
	}
	return false
}

// isForeignLabel reports whether n is a label bound to a different control.
func isForeignLabel(n, self *page.Node) bool {
	target := n.Attr("for")
	return n.IsElement("label") && target != "" && target != self.Attr("id")
}

// textOf returns the visible text below n, skipping the content of controls
// and of skip.
func textOf(n, skip *page.Node) string {
	var parts []string
	var walk func(*page.Node)
	walk = func(cur *page.Node) {
		if cur == skip {
			return
		}
		if cur.Kind == page.TextNode {
			if s := strings.TrimSpace(cur.Text); s != "" && cur.IsVisible() {
				parts = append(parts, s)
			}
			return
		}
		if page.IsFormControl(cur) || cur.IsElement("option", "script", "style", "noscript", "template") {
			return
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

type candidate struct {
	text  string
	score float64
	order int
}

// positional ranks visible text nodes near the control by geometry.
func (r *run) positional() {
	rect := *r.el.Rect
	var cands []candidate

	for i, t := range r.doc.TextNodes() {
		if t.Rect == nil || !t.IsVisible() || r.el.Contains(t) || insideControl(t) {
			continue
		}
		n := *t.Rect

		above := n.Bottom < rect.Top && rect.Top-n.Bottom <= maxAboveGap &&
			math.Abs(n.Left-rect.Left) < nearbyHorizontal
		left := n.Right < rect.Left && math.Abs(n.Bottom-rect.Bottom) < leftVertical
		nearby := math.Abs(n.Left-rect.Left) < nearbyHorizontal &&
			n.Bottom < rect.Top+nearbyBelowTop &&
			n.Bottom > rect.Top-nearbyAboveTop
		if !above && !left && !nearby {
			continue
		}

		horizontal := math.Abs(n.Left - rect.Left)
		var vertical float64
		if n.Bottom < rect.Top {
			vertical = rect.Top - n.Bottom
		} else {
			vertical = math.Abs(n.Bottom-rect.Bottom) + notAbovePenalty
		}
		cands = append(cands, candidate{
			text:  t.Text,
			score: vertical*verticalWeight + horizontal,
			order: i,
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		return cands[i].order < cands[j].order
	})

	for _, cand := range cands {
		if r.full() {
			return
		}
		r.add(cand.text)
	}
}

func insideControl(n *page.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if page.IsFormControl(cur) || cur.IsElement("option") {
			return true
		}
	}
	return false
}

// attributes is the last resort when no text was found.
func (r *run) attributes() {
	for _, name := range []string{"placeholder", "aria-label", "title", "name", "id"} {
		r.add(r.el.Attr(name))
	}
}
