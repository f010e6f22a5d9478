package pdfform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxTextSize caps the text returned by ReadText.
const DefaultMaxTextSize = 1 << 20

// ErrNoText is returned for PDFs without an extractable text layer.
var ErrNoText = errors.New("no text content could be extracted from PDF")

// ReadText returns the plain text of every page, capped at maxBytes. Pages
// that fail to decode are skipped.
func ReadText(path string, maxBytes int) (string, int, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxTextSize
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for n := 1; n <= r.NumPage(); n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if b.Len()+len(content) > maxBytes {
			b.WriteString(truncate(content, maxBytes-b.Len()))
			break
		}
		b.WriteString(content)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", r.NumPage(), ErrNoText
	}
	return text, r.NumPage(), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
