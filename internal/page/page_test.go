package page

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleForm = `<!DOCTYPE html>
<html><head><title> Sign up </title><style>.x{}</style></head>
<body>
  <form id="f">
    <label for="name">姓名：</label><input id="name" name="username" required>
    <input id="email" type="email" value="a@b.co">
    <input type="hidden" name="csrf" value="t">
    <input type="submit" value="Go">
    <div style="display: none"><input id="ghost"></div>
    <fieldset disabled><input id="locked"></fieldset>
    <input id="ro" readonly>
    <select id="city"><option value="">请选择</option><optgroup label="x"><option selected>杭州</option></optgroup></select>
    <textarea id="note">  hello </textarea>
    <input type="checkbox" id="agree" checked>
  </form>
</body></html>`

func TestParseHTML(t *testing.T) {
	doc, err := ParseHTMLString(sampleForm)
	require.NoError(t, err)

	assert.Equal(t, "Sign up", doc.Title)
	assert.Len(t, doc.Controls(), 10)
	require.NotNil(t, doc.ElementByID("name"))
	require.Len(t, doc.LabelsFor("name"), 1)
	assert.Equal(t, "姓名：", doc.LabelsFor("name")[0].VisibleText())
	assert.Nil(t, doc.LabelsFor(""))
}

func TestParseHTMLTitle(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{name: "chinese", markup: `<html><head><title>注册</title></head><body><input></body></html>`, want: "注册"},
		{name: "whitespace collapsed", markup: "<html><head><title>\n  Sign   up \n</title></head><body></body></html>", want: "Sign up"},
		{name: "no title", markup: `<html><body><input></body></html>`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseHTMLString(tt.markup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestDescribe(t *testing.T) {
	doc, err := ParseHTMLString(sampleForm)
	require.NoError(t, err)

	name := doc.Describe(doc.ElementByID("name"))
	assert.Equal(t, KindInput, name.ElementKind)
	assert.Equal(t, "text", name.InputType)
	assert.Equal(t, "username", name.Name)
	assert.True(t, name.IsRequired)
	assert.True(t, name.IsFillable())
	assert.False(t, name.HasValue())
	assert.Equal(t, `//*[@id="name"]`, name.XPath)

	email := doc.Describe(doc.ElementByID("email"))
	assert.True(t, email.HasValue())

	assert.False(t, doc.Describe(doc.ElementByID("ghost")).IsVisible)
	assert.True(t, doc.Describe(doc.ElementByID("locked")).IsDisabled)
	assert.True(t, doc.Describe(doc.ElementByID("ro")).IsReadOnly)

	city := doc.Describe(doc.ElementByID("city"))
	assert.Equal(t, KindSelect, city.ElementKind)
	assert.Equal(t, "select-one", city.InputType)
	require.Len(t, city.Options, 2)
	assert.Equal(t, Option{Value: "杭州", Text: "杭州", Selected: true}, city.Options[1])
	assert.Equal(t, 1, city.SelectedIndex)
	assert.True(t, city.HasValue())

	note := doc.Describe(doc.ElementByID("note"))
	assert.Equal(t, KindTextarea, note.ElementKind)
	assert.True(t, note.HasValue())

	agree := doc.Describe(doc.ElementByID("agree"))
	assert.True(t, agree.IsChoice())
	assert.True(t, agree.HasValue())
}

func TestIsDataControl(t *testing.T) {
	doc, err := ParseHTMLString(sampleForm)
	require.NoError(t, err)

	var data int
	for _, n := range doc.Controls() {
		if IsDataControl(n) {
			data++
		}
	}
	assert.Equal(t, 9, data, "submit button is excluded")
}

func TestIsVisible(t *testing.T) {
	parent := &Node{Kind: ElementNode, Tag: "div", Style: Style{Visibility: "hidden"}}
	child := &Node{Kind: ElementNode, Tag: "span", Parent: parent}
	override := &Node{Kind: ElementNode, Tag: "span", Parent: parent, Style: Style{Visibility: "visible"}}
	faded := &Node{Kind: ElementNode, Tag: "span", Style: Style{Opacity: "0"}}
	flat := &Node{Kind: ElementNode, Tag: "input", Rect: &Rect{Left: 10, Top: 10, Right: 10, Bottom: 30}}
	boxed := &Node{Kind: ElementNode, Tag: "input", Rect: &Rect{Left: 10, Top: 10, Right: 110, Bottom: 30}}
	text := &Node{Kind: TextNode, Text: "x", Parent: faded}

	tests := []struct {
		name     string
		node     *Node
		expected bool
	}{
		{"inherited visibility hidden", child, false},
		{"visibility overridden", override, true},
		{"zero opacity", faded, false},
		{"text under zero opacity", text, false},
		{"zero width box", flat, false},
		{"rendered box", boxed, true},
		{"nil node", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.node.IsVisible())
		})
	}
}

func TestXPathWithoutUniqueID(t *testing.T) {
	doc, err := ParseHTMLString(`<html><body><div><input><input id="d"><input id="d"></div></body></html>`)
	require.NoError(t, err)

	controls := doc.Controls()
	require.Len(t, controls, 3)
	assert.Equal(t, "/html/body/div/input[1]", doc.XPath(controls[0]))
	assert.Equal(t, "/html/body/div/input[3]", doc.XPath(controls[2]))
}

func TestFromSnapshot(t *testing.T) {
	data := []byte(`{
		"url": "https://example.com/form",
		"title": "Form",
		"root": {"type": "element", "tag": "HTML", "children": [
			{"type": "element", "tag": "body", "rect": {"x": 0, "y": 0, "width": 800, "height": 600}, "children": [
				{"type": "text", "text": "Email", "rect": {"x": 10, "y": 10, "width": 40, "height": 16}},
				{"type": "element", "tag": "input", "attrs": {"ID": "e", "type": "email"},
				 "rect": {"x": 10, "y": 30, "width": 200, "height": 24},
				 "style": {"display": "inline-block", "visibility": "visible", "opacity": "1"},
				 "value": "x@y.io", "readOnly": true}
			]}
		]}
	}`)

	doc, err := FromSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/form", doc.URL)
	require.Len(t, doc.Controls(), 1)

	desc := doc.Describe(doc.Controls()[0])
	assert.Equal(t, "e", desc.ID)
	assert.Equal(t, "x@y.io", desc.CurrentValue)
	assert.True(t, desc.IsVisible)
	assert.True(t, desc.IsReadOnly)
	require.NotNil(t, doc.Controls()[0].Rect)
	assert.Equal(t, 210.0, doc.Controls()[0].Rect.Right)
	assert.Len(t, doc.TextNodes(), 1)
}

func TestFromSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"no root", `{"url": "x"}`},
		{"text root", `{"root": {"type": "text", "text": "hi"}}`},
		{"element without tag", `{"root": {"type": "element"}}`},
		{"unknown type", `{"root": {"type": "comment", "tag": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSnapshot([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSnapshot))
		})
	}
}
