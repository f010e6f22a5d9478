// Package resolver ties evidence collection, classification and value
// extraction together and decides between remote and local extraction.
package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/evidence"
	"github.com/a3tai/mcp-form-filler/internal/extract"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/llm"
	"github.com/a3tai/mcp-form-filler/internal/logging"
	"github.com/a3tai/mcp-form-filler/internal/page"
)

// RemoteExtractor is the remote extraction service.
type RemoteExtractor interface {
	Configured() bool
	Protocol() llm.Protocol
	Extract(ctx context.Context, req llm.Request) (map[string]string, error)
}

// Session is the login state captured for one call.
type Session interface {
	IsLoggedIn() bool
	AuthorizationHeader() string
}

// Resolver is safe for concurrent use; it holds no per-call state.
type Resolver struct {
	collector  *evidence.Collector
	extractor  *extract.Extractor
	classifier *fields.Classifier
	vocab      *fields.Vocabulary
	remote     RemoteExtractor
	logger     *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRemote enables remote extraction.
func WithRemote(r RemoteExtractor) Option {
	return func(res *Resolver) { res.remote = r }
}

// WithCollector replaces the default evidence collector.
func WithCollector(c *evidence.Collector) Option {
	return func(res *Resolver) { res.collector = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(res *Resolver) { res.logger = l }
}

// New creates a Resolver over vocab; nil selects the default vocabulary.
func New(vocab *fields.Vocabulary, opts ...Option) *Resolver {
	ex := extract.New(vocab)
	r := &Resolver{
		collector:  evidence.NewCollector(evidence.DefaultMaxResults, evidence.DefaultMaxDepth),
		extractor:  ex,
		classifier: ex.Classifier(),
		vocab:      ex.Classifier().Vocabulary(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named("resolver")
	return r
}

// Classifier returns the classifier the resolver labels fields with.
func (r *Resolver) Classifier() *fields.Classifier { return r.classifier }

// RemoteConfigured reports whether a remote service is available.
func (r *Resolver) RemoteConfigured() bool {
	return r.remote != nil && r.remote.Configured()
}

// ScanPage describes every data-holding control of doc, in document order,
// with its evidence filled in. Buttons are not described.
func (r *Resolver) ScanPage(doc *page.Document) []page.PageInputDescriptor {
	descs := []page.PageInputDescriptor{}
	for _, n := range doc.Controls() {
		if !page.IsDataControl(n) {
			continue
		}
		d := doc.Describe(n)
		ev := r.collector.CollectAround(doc, n)
		d.EvidenceText = ev.Before
		d.AfterText = ev.After
		descs = append(descs, d)
	}
	return descs
}

// ClassifyPageFields classifies descriptors in input order. Hidden, disabled
// and read-only controls are skipped, as are controls with neither a usable
// label nor a recognised type.
func (r *Resolver) ClassifyPageFields(descs []page.PageInputDescriptor) []fields.ClassifiedField {
	out := []fields.ClassifiedField{}
	for _, d := range descs {
		if !d.IsFillable() {
			continue
		}
		if f, ok := r.classifier.ClassifyEvidence(d.EvidenceText); ok {
			out = append(out, f)
		}
	}
	return out
}

// ExtractForFields extracts by label, or generically when classified is empty.
func (r *Resolver) ExtractForFields(text string, classified []fields.ClassifiedField) extract.Result {
	if len(classified) == 0 {
		return r.extractor.ExtractGeneric(text)
	}
	return r.extractor.ExtractByLabels(text, classified)
}

// ExtractGeneric extracts values keyed by canonical type.
func (r *Resolver) ExtractGeneric(text string) extract.Result {
	return r.extractor.ExtractGeneric(text)
}

// Request is one extraction call.
type Request struct {
	Text      string
	Fields    []fields.ClassifiedField
	UseRemote bool
}

// Extract runs one extraction. When req.UseRemote is set and a remote
// service is configured, the session must be logged in; remote failures of
// any kind fall back to local extraction.
func (r *Resolver) Extract(ctx context.Context, sess Session, req Request) Outcome {
	if strings.TrimSpace(req.Text) == "" {
		return failure(CodeEmptyText, reasonEmptyText)
	}

	mode := ModeLabels
	if len(req.Fields) == 0 {
		mode = ModeGeneric
	}

	if r.remoteEnabled(req.UseRemote) {
		if sess == nil || !sess.IsLoggedIn() {
			return failure(CodeAuthenticationRequired, reasonAuthRequired)
		}
		if data, ok := r.extractRemote(ctx, sess, req); ok {
			out := success(SourceRemote, mode, data)
			out.Fields = req.Fields
			return out
		}
	}

	out := success(SourceLocal, mode, r.ExtractForFields(req.Text, req.Fields))
	out.Fields = req.Fields
	return out
}

func (r *Resolver) remoteEnabled(requested bool) bool {
	return requested && r.remote != nil && r.remote.Configured()
}

func (r *Resolver) extractRemote(ctx context.Context, sess Session, req Request) (extract.Result, bool) {
	remoteReq := llm.Request{
		Text:          r.extractor.Prepare(req.Text),
		Authorization: sess.AuthorizationHeader(),
	}
	for _, f := range req.Fields {
		remoteReq.Labels = append(remoteReq.Labels, f.RawLabel)
	}

	values, err := r.remote.Extract(ctx, remoteReq)
	if err != nil {
		r.logFallback(err)
		return nil, false
	}

	var data extract.Result
	if len(req.Fields) == 0 {
		data = r.mapGeneric(values)
	} else {
		data = r.mapLabels(values, req.Fields)
	}
	if len(data) == 0 {
		r.logger.Warn("remote extraction returned no usable values, using local extraction",
			zap.String("failure", "UnparseableRemoteContent"))
		return nil, false
	}
	return data, true
}

// mapGeneric keys remote values by canonical type, accepting either type
// names or label-like keys such as "姓名".
func (r *Resolver) mapGeneric(values map[string]string) extract.Result {
	data := extract.Result{}
	for _, key := range sortedKeys(values) {
		t, ok := fields.ParseFieldType(key)
		if !ok || !t.IsKnown() {
			t = r.classifier.MatchType(key)
		}
		if !t.IsKnown() {
			continue
		}
		if _, taken := data[string(t)]; taken {
			continue
		}
		if v, ok := r.vocab.Rule(t).Normalize(values[key]); ok {
			data.Set(string(t), v)
		}
	}
	return data
}

// mapLabels keys remote values by raw label, accepting a value under the
// label itself or under the field's canonical type name.
func (r *Resolver) mapLabels(values map[string]string, classified []fields.ClassifiedField) extract.Result {
	data := extract.Result{}
	for _, f := range classified {
		v, ok := values[f.RawLabel]
		if !ok && f.FieldType.IsKnown() {
			v, ok = values[string(f.FieldType)]
		}
		if !ok {
			continue
		}
		data.Set(f.RawLabel, r.normalize(f.FieldType, v))
	}
	return data
}

func (r *Resolver) normalize(t fields.FieldType, v string) string {
	if rule := r.vocab.Rule(t); rule != nil {
		v, _ = rule.Normalize(v)
	}
	return v
}

func (r *Resolver) logFallback(err error) {
	failureClass := "RemoteServiceFailure"
	if isUnparseable(err) {
		failureClass = "UnparseableRemoteContent"
	}
	r.logger.Warn("remote extraction failed, using local extraction",
		zap.String("failure", failureClass),
		zap.Error(err))
}

// ExtractField extracts the value for a single control.
func (r *Resolver) ExtractField(ctx context.Context, sess Session, desc page.PageInputDescriptor, text string, useRemote bool) Outcome {
	if strings.TrimSpace(text) == "" {
		return failure(CodeEmptyText, reasonEmptyText)
	}
	f, ok := r.classifier.ClassifyEvidence(desc.EvidenceText)
	if !ok {
		return failure(CodeUnidentifiedField, reasonUnidentified)
	}

	if r.remoteEnabled(useRemote) {
		if sess == nil || !sess.IsLoggedIn() {
			return failure(CodeAuthenticationRequired, reasonAuthRequired)
		}
		if v, ok := r.extractFieldRemote(ctx, sess, desc, f, text); ok {
			out := success(SourceRemote, ModeField, extract.Result{})
			out.Data.Set(f.RawLabel, v)
			out.Fields = []fields.ClassifiedField{f}
			return out
		}
	}

	out := success(SourceLocal, ModeField, extract.Result{})
	if v, pass, ok := r.extractor.ExtractField(text, f); ok {
		r.logger.Debug("field extracted", zap.String("label", f.RawLabel), zap.String("pass", pass))
		out.Data.Set(f.RawLabel, v)
	}
	out.Fields = []fields.ClassifiedField{f}
	return out
}

func (r *Resolver) extractFieldRemote(ctx context.Context, sess Session, desc page.PageInputDescriptor, f fields.ClassifiedField, text string) (string, bool) {
	req := llm.Request{
		Text:          r.extractor.Prepare(text),
		Authorization: sess.AuthorizationHeader(),
	}
	if r.remote.Protocol() == llm.ProtocolField {
		req.BeforeTexts = desc.EvidenceText
		req.AfterTexts = desc.AfterText
	} else {
		req.Labels = []string{f.RawLabel}
	}

	values, err := r.remote.Extract(ctx, req)
	if err != nil {
		r.logFallback(err)
		return "", false
	}

	for _, key := range []string{f.RawLabel, string(f.FieldType), "value"} {
		if v, ok := values[key]; ok {
			if v = strings.TrimSpace(r.normalize(f.FieldType, v)); v != "" {
				return v, true
			}
		}
	}
	if len(values) == 1 {
		for _, v := range values {
			if v = strings.TrimSpace(r.normalize(f.FieldType, v)); v != "" {
				return v, true
			}
		}
	}

	r.logger.Warn("remote field extraction returned no usable value, using local extraction",
		zap.String("failure", "UnparseableRemoteContent"))
	return "", false
}

// ResolvePage scans doc, classifies its controls and extracts values for
// them from text.
func (r *Resolver) ResolvePage(ctx context.Context, sess Session, doc *page.Document, text string, useRemote bool) Outcome {
	descs := r.ScanPage(doc)

	fillable := 0
	for _, d := range descs {
		if d.IsFillable() {
			fillable++
		}
	}
	if fillable == 0 {
		return failure(CodeNoFormElements, reasonNoFormElements)
	}

	out := r.Extract(ctx, sess, Request{
		Text:      text,
		Fields:    r.ClassifyPageFields(descs),
		UseRemote: useRemote,
	})
	out.Descriptors = descs
	return out
}
