package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// wrapperAtoms are added by the parser to any fragment.
var wrapperAtoms = map[atom.Atom]bool{
	atom.Html: true,
	atom.Head: true,
	atom.Body: true,
}

// HasMarkup reports whether text contains real HTML elements. Addresses in
// angle brackets such as "<zhang@example.com>" and stray "<" signs are plain
// text: they either parse to unknown tag names or are dropped unterminated.
func HasMarkup(text string) bool {
	if !strings.ContainsRune(text, '<') {
		return false
	}
	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return false
	}
	return hasKnownElement(root)
}

func hasKnownElement(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom != 0 && !wrapperAtoms[c.DataAtom] {
			return true
		}
		if hasKnownElement(c) {
			return true
		}
	}
	return false
}
