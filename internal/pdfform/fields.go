// Package pdfform reads AcroForm fields and plain text out of PDF files so
// that PDF forms can go through the same classification and extraction as
// web forms.
package pdfform

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-form-filler/internal/page"
)

// Field flag bits, PDF 32000-1 tables 221, 226, 228 and 230.
const (
	flagReadOnly    = 1 << 0
	flagRequired    = 1 << 1
	flagMultiline   = 1 << 12
	flagPassword    = 1 << 13
	flagRadio       = 1 << 15
	flagPushbutton  = 1 << 16
	flagCombo       = 1 << 17
	flagMultiSelect = 1 << 21
)

// maxFieldDepth bounds the Kids recursion on malformed files.
const maxFieldDepth = 32

// fieldSpec is the part of a terminal field dictionary that matters for
// classification, with inherited entries already resolved.
type fieldSpec struct {
	Name     string
	Tooltip  string
	FT       string
	Flags    int
	Value    string
	Selected []string
	Options  []page.Option
	Width    float64
	Height   float64
}

// ReadFields returns a descriptor for every terminal AcroForm field in the
// file at path, push buttons excluded. A PDF without a form yields an empty
// slice.
func ReadFields(path string) ([]page.PageInputDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()
	return ReadFieldsFrom(f)
}

// ReadFieldsFrom is ReadFields over an open PDF.
func ReadFieldsFrom(rs io.ReadSeeker) ([]page.PageInputDescriptor, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	specs, err := collectFields(ctx)
	if err != nil {
		return nil, err
	}

	descs := make([]page.PageInputDescriptor, 0, len(specs))
	for _, s := range specs {
		d := describe(s)
		if d.InputType == "button" {
			continue
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func collectFields(ctx *model.Context) ([]fieldSpec, error) {
	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acro == nil {
		return nil, nil
	}

	fieldsObj, found := acro.Find("Fields")
	if !found {
		return nil, nil
	}
	arr, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	w := &walker{ctx: ctx}
	for _, obj := range arr {
		w.walk(obj, fieldSpec{}, 0)
	}
	return w.specs, nil
}

type walker struct {
	ctx   *model.Context
	specs []fieldSpec
}

// walk descends into Kids that are themselves fields, qualifying names with
// the parent's and carrying FT and Ff down.
func (w *walker) walk(obj types.Object, inherited fieldSpec, depth int) {
	if depth > maxFieldDepth {
		return
	}
	d, err := w.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	spec := inherited
	spec.Tooltip = ""
	if name := w.str(d, "T"); name != "" {
		if spec.Name != "" {
			spec.Name += "." + name
		} else {
			spec.Name = name
		}
	}
	if tu := w.str(d, "TU"); tu != "" {
		spec.Tooltip = tu
	}
	if ft := w.name(d, "FT"); ft != "" {
		spec.FT = ft
	}
	if ff, ok := w.integer(d, "Ff"); ok {
		spec.Flags = ff
	}

	if kids := w.fieldKids(d); len(kids) > 0 {
		for _, k := range kids {
			w.walk(k, spec, depth+1)
		}
		return
	}

	w.readValue(d, &spec)
	spec.Options = w.options(d)
	spec.Width, spec.Height = w.widgetSize(d)
	w.specs = append(w.specs, spec)
}

// fieldKids returns the Kids entries that carry a partial name. Kids
// without T are widget annotations of d itself.
func (w *walker) fieldKids(d types.Dict) []types.Object {
	kidsObj, found := d.Find("Kids")
	if !found {
		return nil
	}
	kids, err := w.ctx.DereferenceArray(kidsObj)
	if err != nil {
		return nil
	}
	var out []types.Object
	for _, k := range kids {
		kd, err := w.ctx.DereferenceDict(k)
		if err != nil || kd == nil {
			continue
		}
		if _, ok := kd.Find("T"); ok {
			out = append(out, k)
		}
	}
	return out
}

func (w *walker) readValue(d types.Dict, spec *fieldSpec) {
	v, found := d.Find("V")
	if !found {
		return
	}
	if s, err := w.ctx.DereferenceStringOrHexLiteral(v, model.V10, nil); err == nil {
		spec.Value = s
		return
	}
	if n, err := w.ctx.DereferenceName(v, model.V10, nil); err == nil {
		spec.Value = string(n)
		return
	}
	if arr, err := w.ctx.DereferenceArray(v); err == nil {
		for _, item := range arr {
			if s, err := w.ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
				spec.Selected = append(spec.Selected, s)
			}
		}
		if len(spec.Selected) > 0 {
			spec.Value = spec.Selected[0]
		}
	}
}

// options reads Opt, whose entries are either display strings or
// [export display] pairs.
func (w *walker) options(d types.Dict) []page.Option {
	optObj, found := d.Find("Opt")
	if !found {
		return nil
	}
	arr, err := w.ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var opts []page.Option
	for _, o := range arr {
		if s, err := w.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil {
			opts = append(opts, page.Option{Value: s, Text: s})
			continue
		}
		pair, err := w.ctx.DereferenceArray(o)
		if err != nil || len(pair) < 2 {
			continue
		}
		export, err1 := w.ctx.DereferenceStringOrHexLiteral(pair[0], model.V10, nil)
		display, err2 := w.ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil)
		if err1 == nil && err2 == nil {
			opts = append(opts, page.Option{Value: export, Text: display})
		}
	}
	return opts
}

// widgetSize reads Rect from the merged widget or from the first widget kid.
func (w *walker) widgetSize(d types.Dict) (float64, float64) {
	if width, height, ok := w.rectSize(d); ok {
		return width, height
	}
	kidsObj, found := d.Find("Kids")
	if !found {
		return 0, 0
	}
	kids, err := w.ctx.DereferenceArray(kidsObj)
	if err != nil || len(kids) == 0 {
		return 0, 0
	}
	kd, err := w.ctx.DereferenceDict(kids[0])
	if err != nil || kd == nil {
		return 0, 0
	}
	width, height, _ := w.rectSize(kd)
	return width, height
}

func (w *walker) rectSize(d types.Dict) (float64, float64, bool) {
	rectObj, found := d.Find("Rect")
	if !found {
		return 0, 0, false
	}
	arr, err := w.ctx.DereferenceArray(rectObj)
	if err != nil || len(arr) != 4 {
		return 0, 0, false
	}
	var c [4]float64
	for i, o := range arr {
		if f, err := w.ctx.DereferenceNumber(o); err == nil {
			c[i] = f
		}
	}
	width, height := c[2]-c[0], c[3]-c[1]
	if width < 0 {
		width = -width
	}
	if height < 0 {
		height = -height
	}
	return width, height, true
}

func (w *walker) str(d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	s, err := w.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (w *walker) name(d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	n, err := w.ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(n)
}

func (w *walker) integer(d types.Dict, key string) (int, bool) {
	obj, found := d.Find(key)
	if !found {
		return 0, false
	}
	i, err := w.ctx.DereferenceInteger(obj)
	if err != nil || i == nil {
		return 0, false
	}
	return int(*i), true
}

// describe maps a field onto the descriptor shape shared with web forms.
func describe(s fieldSpec) page.PageInputDescriptor {
	d := page.PageInputDescriptor{
		ElementKind:   page.KindInput,
		InputType:     "text",
		Name:          s.Name,
		IsRequired:    s.Flags&flagRequired != 0,
		IsReadOnly:    s.Flags&flagReadOnly != 0,
		IsVisible:     s.Width > 0 && s.Height > 0,
		CurrentValue:  s.Value,
		Options:       s.Options,
		SelectedIndex: -1,
	}

	for _, ev := range []string{s.Tooltip, lastSegment(s.Name)} {
		if ev != "" && !contains(d.EvidenceText, ev) {
			d.EvidenceText = append(d.EvidenceText, ev)
		}
	}

	switch s.FT {
	case "Btn":
		switch {
		case s.Flags&flagPushbutton != 0:
			d.InputType = "button"
		case s.Flags&flagRadio != 0:
			d.InputType = "radio"
		default:
			d.InputType = "checkbox"
		}
		d.Checked = s.Value != "" && s.Value != "Off"
	case "Ch":
		d.ElementKind = page.KindSelect
		d.InputType = "select-one"
		if s.Flags&flagMultiSelect != 0 {
			d.InputType = "select-multiple"
		}
		d.SelectedIndex = 0
		for i, o := range s.Options {
			if o.Value == s.Value || (s.Value != "" && o.Text == s.Value) {
				d.SelectedIndex = i
				d.Options[i].Selected = true
				break
			}
		}
	case "Sig":
		d.InputType = "signature"
	case "Tx":
		switch {
		case s.Flags&flagPassword != 0:
			d.InputType = "password"
		case s.Flags&flagMultiline != 0:
			d.ElementKind = page.KindTextarea
			d.InputType = "textarea"
		}
	}
	return d
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
