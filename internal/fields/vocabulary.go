package fields

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// matchTimeout bounds a single regular expression evaluation.
const matchTimeout = 2 * time.Second

// Rule is a compiled FieldTypeRule.
type Rule struct {
	FieldTypeRule

	synonym *regexp2.Regexp
	values  []*regexp2.Regexp
	shape   *regexp2.Regexp
}

// Vocabulary is the compiled, read-only set of rules, one per known type.
type Vocabulary struct {
	rules  []*Rule
	byType map[FieldType]*Rule
}

var (
	defaultVocabulary     *Vocabulary
	defaultVocabularyOnce sync.Once
)

// DefaultVocabulary returns the shared vocabulary built from DefaultRules.
func DefaultVocabulary() *Vocabulary {
	defaultVocabularyOnce.Do(func() {
		v, err := NewVocabulary(DefaultRules())
		if err != nil {
			panic(fmt.Sprintf("fields: built-in rules do not compile: %v", err))
		}
		defaultVocabulary = v
	})
	return defaultVocabulary
}

// NewVocabulary compiles rules. Every known type must have exactly one rule.
func NewVocabulary(rules []FieldTypeRule) (*Vocabulary, error) {
	v := &Vocabulary{byType: make(map[FieldType]*Rule, len(rules))}

	for _, def := range rules {
		if !def.Type.IsKnown() {
			return nil, fmt.Errorf("rule for unsupported field type %q", def.Type)
		}
		if _, dup := v.byType[def.Type]; dup {
			return nil, fmt.Errorf("duplicate rule for field type %q", def.Type)
		}
		r, err := compileRule(def)
		if err != nil {
			return nil, err
		}
		v.byType[def.Type] = r
	}

	for _, t := range priorityOrder {
		r, ok := v.byType[t]
		if !ok {
			return nil, fmt.Errorf("missing rule for field type %q", t)
		}
		v.rules = append(v.rules, r)
	}

	return v, nil
}

func compileRule(def FieldTypeRule) (*Rule, error) {
	if len(def.Synonyms) == 0 {
		return nil, fmt.Errorf("rule %q has no synonyms", def.Type)
	}

	r := &Rule{FieldTypeRule: def}

	var err error
	r.synonym, err = compile(`(?:` + strings.Join(def.Synonyms, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("rule %q synonyms: %w", def.Type, err)
	}

	for i, p := range def.ValuePatterns {
		re, err := compile(p)
		if err != nil {
			return nil, fmt.Errorf("rule %q value pattern %d: %w", def.Type, i, err)
		}
		r.values = append(r.values, re)
	}

	if def.ShapePattern != "" {
		r.shape, err = compile(def.ShapePattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q shape pattern: %w", def.Type, err)
		}
	}

	return r, nil
}

func compile(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// Rules returns the compiled rules in priority order.
func (v *Vocabulary) Rules() []*Rule {
	return v.rules
}

// Rule returns the rule for t, or nil for unknown.
func (v *Vocabulary) Rule(t FieldType) *Rule {
	return v.byType[t]
}

// MatchesSynonym reports whether text contains one of the rule's synonyms.
func (r *Rule) MatchesSynonym(text string) bool {
	ok, err := r.synonym.MatchString(text)
	return err == nil && ok
}

// FindValue applies the keyword-anchored patterns, then the bare shape
// pattern, and returns the first normalised non-empty value.
func (r *Rule) FindValue(text string) (string, bool) {
	for _, re := range r.values {
		m, err := re.FindStringMatch(text)
		if err != nil || m == nil {
			continue
		}
		if v, ok := r.Normalize(m.GroupByNumber(1).String()); ok {
			return v, true
		}
	}

	if r.shape != nil {
		m, err := r.shape.FindStringMatch(text)
		if err == nil && m != nil {
			return r.Normalize(m.String())
		}
	}

	return "", false
}

// Normalize canonicalises a matched value for the rule's type. The second
// result is false when nothing usable remains.
func (r *Rule) Normalize(value string) (string, bool) {
	value = strings.TrimSpace(value)

	switch r.Type {
	case FieldTypePhone:
		value = strings.NewReplacer("-", "", " ", "").Replace(value)
	case FieldTypeGender:
		value = NormalizeGender(value)
	case FieldTypeIDCard:
		value = strings.ToUpper(value)
	case FieldTypeBirthday:
		value = strings.Join(strings.Fields(value), "")
	}

	return value, value != ""
}

// NormalizeGender maps a gender token to 男 or 女, or "" when unrecognised.
func NormalizeGender(token string) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "男", "male", "man":
		return "男"
	case "女", "female", "woman":
		return "女"
	default:
		return ""
	}
}

// overlayFile is the on-disk format of a vocabulary overlay.
type overlayFile struct {
	Types map[string]struct {
		Synonyms []string `yaml:"synonyms"`
	} `yaml:"types"`
}

// LoadOverlay reads a YAML file of extra synonyms and returns a vocabulary
// built from DefaultRules plus those synonyms. Overlay synonyms are literals.
func LoadOverlay(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary overlay: %w", err)
	}
	return ParseOverlay(data)
}

// ParseOverlay is LoadOverlay for in-memory YAML.
func ParseOverlay(data []byte) (*Vocabulary, error) {
	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary overlay: %w", err)
	}

	rules := DefaultRules()
	index := make(map[FieldType]int, len(rules))
	for i, r := range rules {
		index[r.Type] = i
	}

	for name, entry := range file.Types {
		t, ok := ParseFieldType(name)
		if !ok || !t.IsKnown() {
			return nil, fmt.Errorf("vocabulary overlay names unknown field type %q", name)
		}
		for _, s := range entry.Synonyms {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			rules[index[t]].Synonyms = append(rules[index[t]].Synonyms, regexp2.Escape(s))
		}
	}

	return NewVocabulary(rules)
}
