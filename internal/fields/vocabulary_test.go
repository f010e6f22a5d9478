package fields

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVocabularyCoversEveryType(t *testing.T) {
	v := DefaultVocabulary()

	require.Len(t, v.Rules(), len(PriorityOrder()))
	for i, typ := range PriorityOrder() {
		r := v.Rule(typ)
		require.NotNil(t, r, "missing rule for %s", typ)
		assert.Equal(t, typ, v.Rules()[i].Type)
	}
	assert.Nil(t, v.Rule(FieldTypeUnknown))
}

func TestNewVocabularyRejectsBadTables(t *testing.T) {
	rules := DefaultRules()

	_, err := NewVocabulary(rules[1:])
	assert.Error(t, err, "missing name rule")

	_, err = NewVocabulary(append(DefaultRules(), DefaultRules()[0]))
	assert.Error(t, err, "duplicate rule")

	broken := DefaultRules()
	broken[0].Synonyms = []string{`(`}
	_, err = NewVocabulary(broken)
	assert.Error(t, err, "invalid synonym pattern")
}

func TestRuleFindValue(t *testing.T) {
	v := DefaultVocabulary()

	tests := []struct {
		name     string
		typ      FieldType
		text     string
		expected string
		found    bool
	}{
		{"phone with separators", FieldTypePhone, "电话：138-1234-5678", "13812345678", true},
		{"bare phone", FieldTypePhone, "call 13912345678 today", "13912345678", true},
		{"phone inside longer digits", FieldTypePhone, "订单号 213912345678901", "", false},
		{"landline", FieldTypePhone, "电话：010-88886666", "01088886666", true},
		{"bare email", FieldTypeEmail, "reach me at li.si@example.org.", "li.si@example.org", true},
		{"zipcode", FieldTypeZipcode, "邮编：100080", "100080", true},
		{"zipcode needs keyword", FieldTypeZipcode, "100080", "", false},
		{"birthday", FieldTypeBirthday, "生日是1990年3月7日", "1990年3月7日", true},
		{"gender english", FieldTypeGender, "性别:female", "女", true},
		{"gender chinese", FieldTypeGender, "性别：男", "男", true},
		{"gender unknown token", FieldTypeGender, "性别：未知", "", false},
		{"gender prefix of word", FieldTypeGender, "sex: manager", "", false},
		{"id card", FieldTypeIDCard, "身份证号：11010119900307123x", "11010119900307123X", true},
		{"bare id card", FieldTypeIDCard, "号码 110101199003071234 已登记", "110101199003071234", true},
		{"city", FieldTypeCity, "城市：杭州", "杭州", true},
		{"company", FieldTypeCompany, "公司：星河科技有限公司，", "星河科技有限公司", true},
		{"address skips email", FieldTypeAddress, "Email Address: zhang@example.com", "", false},
		{"hotel is not a phone keyword", FieldTypePhone, "Hotel: 88886666", "", false},
		{"short tel keyword", FieldTypePhone, "Tel: 010-88886666", "01088886666", true},
		{"statement is not a province", FieldTypeProvince, "statement: 已签署", "", false},
		{"english name", FieldTypeName, "Name: Alice", "Alice", true},
		{"username is not a name keyword", FieldTypeName, "username: alice01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := v.Rule(tt.typ).FindValue(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeGender(t *testing.T) {
	for _, in := range []string{"男", "male", "Man", "MALE"} {
		assert.Equal(t, "男", NormalizeGender(in), in)
	}
	for _, in := range []string{"女", "female", "Woman"} {
		assert.Equal(t, "女", NormalizeGender(in), in)
	}
	assert.Equal(t, "", NormalizeGender("other"))
}

func TestParseOverlay(t *testing.T) {
	data := []byte(`
types:
  phone:
    synonyms: ["座机", "cell (primary)"]
  company:
    synonyms: ["雇主"]
`)
	v, err := ParseOverlay(data)
	require.NoError(t, err)

	c := NewClassifier(v)
	assert.Equal(t, FieldTypePhone, c.MatchType("座机"))
	assert.Equal(t, FieldTypePhone, c.MatchType("Cell (primary)"))
	assert.Equal(t, FieldTypeCompany, c.MatchType("雇主"))

	// The default vocabulary is unaffected.
	assert.Equal(t, FieldTypeUnknown, NewClassifier(nil).MatchType("座机"))
}

func TestParseOverlayRejectsUnknownType(t *testing.T) {
	_, err := ParseOverlay([]byte("types:\n  fax:\n    synonyms: [传真]\n"))
	assert.Error(t, err)

	_, err = ParseOverlay([]byte("types: ["))
	assert.Error(t, err)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  title:\n    synonyms: [岗位]\n"), 0o600))

	v, err := LoadOverlay(path)
	require.NoError(t, err)
	assert.Equal(t, FieldTypeTitle, NewClassifier(v).MatchType("应聘岗位"))

	_, err = LoadOverlay(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFieldType(t *testing.T) {
	typ, ok := ParseFieldType(" Phone ")
	assert.True(t, ok)
	assert.Equal(t, FieldTypePhone, typ)

	typ, ok = ParseFieldType("fax")
	assert.False(t, ok)
	assert.Equal(t, FieldTypeUnknown, typ)
}
