package fields

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// MaxLabelLength is the number of runes kept from a label before "..." is appended.
const MaxLabelLength = 30

// Classifier maps label evidence to a canonical field type.
type Classifier struct {
	vocab *Vocabulary
}

// NewClassifier creates a classifier over vocab. A nil vocab selects the
// default vocabulary.
func NewClassifier(vocab *Vocabulary) *Classifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{vocab: vocab}
}

// Vocabulary returns the vocabulary the classifier matches against.
func (c *Classifier) Vocabulary() *Vocabulary {
	return c.vocab
}

// MatchType tests text against every rule in priority order and returns the
// first type whose synonyms hit.
func (c *Classifier) MatchType(text string) FieldType {
	text = strings.TrimSpace(text)
	if text == "" {
		return FieldTypeUnknown
	}
	for _, r := range c.vocab.rules {
		if r.MatchesSynonym(text) {
			return r.Type
		}
	}
	return FieldTypeUnknown
}

// Classify walks evidence in authority order and returns the type of the
// first string that matches any rule.
func (c *Classifier) Classify(evidence []string) FieldType {
	for _, text := range evidence {
		if t := c.MatchType(text); t != FieldTypeUnknown {
			return t
		}
	}
	return FieldTypeUnknown
}

// ClassifyEvidence produces a ClassifiedField from evidence. ok is false when
// there is neither a usable label nor a recognised type.
func (c *Classifier) ClassifyEvidence(evidence []string) (ClassifiedField, bool) {
	label := ""
	for _, text := range evidence {
		if cleaned := CleanLabel(text); cleaned != "" {
			label = cleaned
			break
		}
	}

	t := c.Classify(evidence)
	if label == "" && t == FieldTypeUnknown {
		return ClassifiedField{}, false
	}
	if label == "" {
		label = string(t)
	}

	return ClassifiedField{RawLabel: label, FieldType: t}, true
}

var trailingPunct = regexp2.MustCompile(`[\s:：*＊?？()（）]+$`, regexp2.None)

// CleanLabel trims whitespace and trailing punctuation from a label and caps
// its length.
func CleanLabel(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if stripped, err := trailingPunct.Replace(text, "", -1, -1); err == nil {
		text = stripped
	}
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > MaxLabelLength {
		runes := []rune(text)
		text = string(runes[:MaxLabelLength]) + "..."
	}
	return text
}
