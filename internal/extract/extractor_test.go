package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/a3tai/mcp-form-filler/internal/fields"
)

func TestExtractGeneric(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name     string
		text     string
		expected Result
	}{
		{
			name:     "chinese self introduction",
			text:     "我叫张三，手机号13812345678，邮箱zhang@example.com",
			expected: Result{"name": "张三", "phone": "13812345678", "email": "zhang@example.com"},
		},
		{
			name:     "phone separators stripped",
			text:     "电话：138-1234-5678",
			expected: Result{"phone": "13812345678"},
		},
		{
			name:     "full width digits and punctuation",
			text:     "手机：１３９１２３４５６７８，性别：女",
			expected: Result{"phone": "13912345678", "gender": "女"},
		},
		{
			name:     "gender normalised",
			text:     "性别:female",
			expected: Result{"gender": "女"},
		},
		{
			name:     "unrecognised gender omitted",
			text:     "性别：保密",
			expected: Result{},
		},
		{
			name: "many fields",
			text: "姓名：李四\n地址：浙江省杭州市西湖区文三路100号\n城市：杭州\n邮编：310000\n" +
				"公司：星河科技\n职位：工程师\n生日：1990-03-07\n身份证：11010119900307123X",
			expected: Result{
				"name":     "李四",
				"address":  "浙江省杭州市西湖区文三路100号",
				"city":     "杭州",
				"zipcode":  "310000",
				"company":  "星河科技",
				"title":    "工程师",
				"birthday": "1990-03-07",
				"idcard":   "11010119900307123X",
			},
		},
		{
			name:     "markup is stripped",
			text:     "<p>我叫<b>王五</b>，邮箱：<i>wang@example.com</i></p>",
			expected: Result{"name": "王五", "email": "wang@example.com"},
		},
		{
			name:     "address in angle brackets kept",
			text:     "联系人：张三 <zhang@example.com>，手机13812345678",
			expected: Result{"name": "张三", "phone": "13812345678", "email": "zhang@example.com"},
		},
		{
			name:     "stray angle bracket kept",
			text:     "我叫张三，年龄<a30，邮箱zhang@example.com，电话13812345678",
			expected: Result{"name": "张三", "phone": "13812345678", "email": "zhang@example.com"},
		},
		{
			name:     "comparison signs kept",
			text:     "预算<5000 >3000，电话：13812345678",
			expected: Result{"phone": "13812345678"},
		},
		{
			name:     "english name",
			text:     "Name: Alice Smith, Phone: 13812345678",
			expected: Result{"name": "Alice Smith", "phone": "13812345678"},
		},
		{
			name:     "english full name stops at next keyword",
			text:     "Full name: Bob Lee email bob@example.com",
			expected: Result{"name": "Bob Lee", "email": "bob@example.com"},
		},
		{
			name:     "nothing recognisable",
			text:     "今天天气不错",
			expected: Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ExtractGeneric(tt.text)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ExtractGeneric() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "plain text", text: "张三 13812345678", expected: "张三 13812345678"},
		{name: "angle bracket address", text: "张三 <zhang@example.com>", expected: "张三 <zhang@example.com>"},
		{name: "unterminated tag", text: "年龄<a30，电话13812345678", expected: "年龄<a30,电话13812345678"},
		{name: "real markup", text: "<p>我叫<b>王五</b></p>", expected: "我叫王五"},
		{name: "entities in markup", text: "<div>A &amp; B</div>", expected: "A & B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Prepare(tt.text))
		})
	}
}

func TestExtractGenericIsIdempotent(t *testing.T) {
	e := New(nil)
	texts := []string{
		"我叫张三，手机号13812345678，邮箱zhang@example.com",
		"Name: Alice; phone: +86 138 1234 5678; gender: male",
		"",
	}
	for _, text := range texts {
		first := e.ExtractGeneric(text)
		second := e.ExtractGeneric(text)
		assert.Equal(t, first, second, text)
	}
}

func TestResultsNeverHoldBlankValues(t *testing.T) {
	e := New(nil)
	text := "姓名：  ，电话：  ，邮箱：，地址：   ，性别：   ，公司：  。备注： \n"
	classified := []fields.ClassifiedField{
		{RawLabel: "姓名", FieldType: fields.FieldTypeName},
		{RawLabel: "备注", FieldType: fields.FieldTypeUnknown},
		{RawLabel: "性别", FieldType: fields.FieldTypeGender},
	}

	for _, result := range []Result{e.ExtractGeneric(text), e.ExtractByLabels(text, classified)} {
		for k, v := range result {
			assert.NotEmpty(t, strings.TrimSpace(v), "key %q", k)
		}
	}
}

func TestExtractByLabels(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name       string
		text       string
		classified []fields.ClassifiedField
		expected   Result
	}{
		{
			name:       "label anchored phone",
			text:       "联系电话: 13900001111",
			classified: []fields.ClassifiedField{{RawLabel: "联系电话", FieldType: fields.FieldTypePhone}},
			expected:   Result{"联系电话": "13900001111"},
		},
		{
			name:       "label inflection",
			text:       "我的爱好是游泳，其他不详",
			classified: []fields.ClassifiedField{{RawLabel: "爱好", FieldType: fields.FieldTypeUnknown}},
			expected:   Result{"爱好": "游泳"},
		},
		{
			name: "type anchored when label is absent from text",
			text: "请联系 138-0000-1111 或 a.b@example.net",
			classified: []fields.ClassifiedField{
				{RawLabel: "Mobile number", FieldType: fields.FieldTypePhone},
				{RawLabel: "Work email", FieldType: fields.FieldTypeEmail},
				{RawLabel: "备注", FieldType: fields.FieldTypeUnknown},
			},
			expected: Result{"Mobile number": "13800001111", "Work email": "a.b@example.net"},
		},
		{
			name: "cross field fallback maps generic values by label synonym",
			text: "我叫赵六",
			classified: []fields.ClassifiedField{
				{RawLabel: "联系人", FieldType: fields.FieldTypeUnknown},
				{RawLabel: "留言", FieldType: fields.FieldTypeUnknown},
			},
			expected: Result{"联系人": "赵六"},
		},
		{
			name:       "gender label normalises",
			text:       "性别: Male",
			classified: []fields.ClassifiedField{{RawLabel: "性别", FieldType: fields.FieldTypeGender}},
			expected:   Result{"性别": "男"},
		},
		{
			name:       "unmatched fields are omitted",
			text:       "姓名：钱七",
			classified: []fields.ClassifiedField{{RawLabel: "传真", FieldType: fields.FieldTypeUnknown}},
			expected:   Result{},
		},
		{
			name:       "label with regex metacharacters",
			text:       "Phone (home): 010-66668888",
			classified: []fields.ClassifiedField{{RawLabel: "Phone (home)", FieldType: fields.FieldTypePhone}},
			expected:   Result{"Phone (home)": "01066668888"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ExtractByLabels(tt.text, tt.classified)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ExtractByLabels() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractFieldReportsPass(t *testing.T) {
	e := New(nil)

	v, pass, ok := e.ExtractField("邮箱是 li@example.com", fields.ClassifiedField{RawLabel: "邮箱", FieldType: fields.FieldTypeEmail})
	assert.True(t, ok)
	assert.Equal(t, "label", pass)
	assert.Equal(t, "li@example.com", v)

	v, pass, ok = e.ExtractField("li@example.com", fields.ClassifiedField{RawLabel: "E-mail address", FieldType: fields.FieldTypeEmail})
	assert.True(t, ok)
	assert.Equal(t, "type", pass)
	assert.Equal(t, "li@example.com", v)

	_, _, ok = e.ExtractField("nothing", fields.ClassifiedField{RawLabel: "Fax", FieldType: fields.FieldTypeUnknown})
	assert.False(t, ok)
}

func TestLabelPatternEscapesLabel(t *testing.T) {
	p := LabelPattern("a.b", genericToken)
	assert.Contains(t, p, `a\.b`)
	assert.True(t, strings.HasPrefix(p, "(?:我的"))
}

func TestResultSet(t *testing.T) {
	r := Result{}
	assert.False(t, r.Set("k", "   "))
	assert.False(t, r.Set("", "v"))
	assert.True(t, r.Set("k", " v "))
	assert.Equal(t, "v", r["k"])
	assert.Equal(t, []string{"k"}, r.Keys())

	c := r.Clone()
	c["k"] = "changed"
	assert.Equal(t, "v", r["k"])
}
