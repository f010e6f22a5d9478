// Package extract pulls personal-information values out of free text.
package extract

import (
	"html"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/width"

	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/page"
)

// labelCopula sits between an on-page label and its value.
const labelCopula = `\s*(?:是|为)?\s*[:：]?\s*`

// genericToken is the value shape used when a label has no typed token.
const genericToken = `[^\s，。,.\n][^，。,.\n]{0,49}`

// Extractor finds values in text using a vocabulary.
type Extractor struct {
	vocab      *fields.Vocabulary
	classifier *fields.Classifier
	policy     *bluemonday.Policy
}

// New creates an extractor. A nil vocab selects the default vocabulary.
func New(vocab *fields.Vocabulary) *Extractor {
	c := fields.NewClassifier(vocab)
	return &Extractor{
		vocab:      c.Vocabulary(),
		classifier: c,
		policy:     bluemonday.StrictPolicy(),
	}
}

// Classifier returns the classifier sharing the extractor's vocabulary.
func (e *Extractor) Classifier() *fields.Classifier {
	return e.classifier
}

// Prepare strips markup from pasted HTML and folds full-width characters to
// their narrow forms so that one set of patterns covers both. Text without
// HTML elements keeps its angle brackets.
func (e *Extractor) Prepare(text string) string {
	if page.HasMarkup(text) {
		text = html.UnescapeString(e.policy.Sanitize(text))
	}
	return width.Fold.String(text)
}

// ExtractGeneric applies every rule once and keeps the first value found
// per type.
func (e *Extractor) ExtractGeneric(text string) Result {
	text = e.Prepare(text)
	result := Result{}
	for _, r := range e.vocab.Rules() {
		if v, ok := r.FindValue(text); ok {
			result.Set(string(r.Type), v)
		}
	}
	return result
}

// strategy is one extraction pass for a single field.
type strategy struct {
	name string
	run  func(text string, f fields.ClassifiedField) (string, bool)
}

func (e *Extractor) strategies() []strategy {
	return []strategy{
		{name: "label", run: e.labelAnchored},
		{name: "type", run: e.typeAnchored},
	}
}

// ExtractField runs the per-field passes in order and returns the first hit
// together with the name of the pass that produced it.
func (e *Extractor) ExtractField(text string, f fields.ClassifiedField) (value, pass string, ok bool) {
	text = e.Prepare(text)
	return e.extractPrepared(text, f)
}

func (e *Extractor) extractPrepared(text string, f fields.ClassifiedField) (string, string, bool) {
	for _, s := range e.strategies() {
		if v, ok := s.run(text, f); ok {
			return v, s.name, true
		}
	}
	return "", "", false
}

// ExtractByLabels extracts a value for each classified field, keyed by its
// raw label. When no field matches at all, the generic scan is mapped onto
// the fields by label synonym, then by classified type.
func (e *Extractor) ExtractByLabels(text string, classified []fields.ClassifiedField) Result {
	text = e.Prepare(text)
	result := Result{}

	for _, f := range classified {
		if _, done := result[f.RawLabel]; done {
			continue
		}
		if v, _, ok := e.extractPrepared(text, f); ok {
			result.Set(f.RawLabel, v)
		}
	}
	if len(result) > 0 {
		return result
	}

	generic := e.ExtractGeneric(text)
	if len(generic) == 0 {
		return result
	}
	for _, f := range classified {
		t := e.classifier.MatchType(width.Fold.String(f.RawLabel))
		if t == fields.FieldTypeUnknown {
			t = f.FieldType
		}
		if v, ok := generic[string(t)]; ok {
			result.Set(f.RawLabel, v)
		}
	}
	return result
}

// labelAnchored looks for the literal label, or a common inflection of it,
// followed by a value.
func (e *Extractor) labelAnchored(text string, f fields.ClassifiedField) (string, bool) {
	label := strings.TrimSpace(width.Fold.String(f.RawLabel))
	if label == "" || strings.HasSuffix(label, "...") {
		return "", false
	}

	rule := e.vocab.Rule(f.FieldType)
	token := genericToken
	if rule != nil && rule.ValueToken != "" {
		token = rule.ValueToken
	}

	re, err := regexp2.Compile(LabelPattern(label, token), regexp2.IgnoreCase)
	if err != nil {
		return "", false
	}
	re.MatchTimeout = time.Second

	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return "", false
	}
	value := m.GroupByNumber(1).String()
	if rule != nil {
		return rule.Normalize(value)
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// LabelPattern builds the label-anchored expression. Group 1 is the value.
func LabelPattern(label, token string) string {
	q := regexp2.Escape(label)
	variants := []string{
		"我的" + q,
		"我" + q,
		q + "是",
		q + "为",
		q + "：",
		q + ":",
		q,
	}
	return `(?:` + strings.Join(variants, "|") + `)` + labelCopula + `(` + token + `)`
}

// typeAnchored applies the canonical type's own value patterns.
func (e *Extractor) typeAnchored(text string, f fields.ClassifiedField) (string, bool) {
	if !f.FieldType.IsKnown() {
		return "", false
	}
	return e.vocab.Rule(f.FieldType).FindValue(text)
}
