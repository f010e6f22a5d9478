// Package formfill orchestrates the form tools: it loads pages from HTML,
// snapshots, files, live browsers or PDFs, runs the resolver over them,
// plans fills, and keeps the session and last result.
package formfill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/browser"
	"github.com/a3tai/mcp-form-filler/internal/extract"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/files"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/logging"
	"github.com/a3tai/mcp-form-filler/internal/page"
	"github.com/a3tai/mcp-form-filler/internal/pdfform"
	"github.com/a3tai/mcp-form-filler/internal/resolver"
	"github.com/a3tai/mcp-form-filler/internal/session"
	"github.com/a3tai/mcp-form-filler/internal/store"
)

var (
	// ErrNoPageSource is returned when a request names no page.
	ErrNoPageSource = errors.New("one of html, snapshot, path or url is required")
	// ErrBrowserDisabled is returned for live page requests without a browser.
	ErrBrowserDisabled = errors.New("live page access is disabled; start the server with --browser")
	// ErrFieldNotFound is returned when a selector matches no control.
	ErrFieldNotFound = errors.New("no form control matches the selector")
)

var pageExtensions = []string{".html", ".htm", ".json"}

// Dependencies are the collaborators a Service is built from. Browser may
// be nil.
type Dependencies struct {
	Resolver *resolver.Resolver
	Planner  *fill.Planner
	Sessions *session.Manager
	History  *store.History
	Files    *files.Validator
	Browser  *browser.Browser
	Logger   *zap.Logger
	// MaxTextSize caps text read from PDFs.
	MaxTextSize int
}

// Service implements the operations behind the MCP tools.
type Service struct {
	deps     Dependencies
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService checks that every required dependency is present.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("resolver cannot be nil")
	case deps.Planner == nil:
		return nil, fmt.Errorf("planner cannot be nil")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session manager cannot be nil")
	case deps.History == nil:
		return nil, fmt.Errorf("history cannot be nil")
	case deps.Files == nil:
		return nil, fmt.Errorf("file validator cannot be nil")
	}
	return &Service{
		deps:     deps,
		validate: validator.New(),
		logger:   logging.OrNop(deps.Logger).Named("formfill"),
	}, nil
}

// BrowserEnabled reports whether live page tools are available.
func (s *Service) BrowserEnabled() bool {
	return s.deps.Browser != nil
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// loadPage builds a Document from the first source given.
func (s *Service) loadPage(ctx context.Context, src PageSource) (*page.Document, error) {
	switch {
	case src.HTML != "":
		return page.ParseHTMLString(src.HTML)
	case src.Snapshot != "":
		return page.FromSnapshot([]byte(src.Snapshot))
	case src.Path != "":
		data, err := s.deps.Files.ReadFile(src.Path, pageExtensions...)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.ToLower(src.Path), ".json") {
			return page.FromSnapshot(data)
		}
		return page.ParseHTMLString(string(data))
	case src.URL != "":
		return s.snapshotURL(ctx, src.URL)
	default:
		return nil, ErrNoPageSource
	}
}

func (s *Service) snapshotURL(ctx context.Context, url string) (*page.Document, error) {
	if s.deps.Browser == nil {
		return nil, ErrBrowserDisabled
	}
	tab, err := s.deps.Browser.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer tab.Close()
	return tab.Snapshot(ctx)
}

// acquireSession snapshots the login for one call. A store failure counts
// as logged out.
func (s *Service) acquireSession(ctx context.Context) *session.Session {
	sess, err := s.deps.Sessions.Acquire(ctx)
	if err != nil {
		s.logger.Warn("failed to load session", zap.Error(err))
		return nil
	}
	return sess
}

// remember stores a successful outcome as the last extraction.
func (s *Service) remember(ctx context.Context, text string, out resolver.Outcome) {
	if !out.Success {
		return
	}
	err := s.deps.History.SaveLast(ctx, store.Extraction{
		Text:   text,
		Mode:   string(out.Mode),
		Source: string(out.Source),
		Result: out.Data,
		At:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to save extraction", zap.Error(err))
	}
}

// Scan describes and classifies the controls of a page.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	doc, err := s.loadPage(ctx, req.PageSource)
	if err != nil {
		return nil, err
	}
	descs := s.deps.Resolver.ScanPage(doc)
	return &ScanResult{
		URL:         doc.URL,
		Title:       doc.Title,
		Total:       len(descs),
		Descriptors: descs,
		Fields:      s.deps.Resolver.ClassifyPageFields(descs),
	}, nil
}

// Extract resolves a page against text, or extracts for the given labels,
// or extracts generically when neither is given.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (resolver.Outcome, error) {
	if err := s.check(req); err != nil {
		return resolver.Outcome{}, err
	}
	sess := s.acquireSession(ctx)

	var out resolver.Outcome
	switch {
	case !req.PageSource.IsEmpty():
		doc, err := s.loadPage(ctx, req.PageSource)
		if err != nil {
			return resolver.Outcome{}, err
		}
		out = s.deps.Resolver.ResolvePage(ctx, sess, doc, req.Text, req.UseRemote)
	default:
		out = s.deps.Resolver.Extract(ctx, sess, resolver.Request{
			Text:      req.Text,
			Fields:    s.classifyLabels(req.Labels),
			UseRemote: req.UseRemote,
		})
	}

	s.remember(ctx, req.Text, out)
	return out, nil
}

// ExtractGeneric extracts canonical-type values from text.
func (s *Service) ExtractGeneric(ctx context.Context, text string, useRemote bool) resolver.Outcome {
	out := s.deps.Resolver.Extract(ctx, s.acquireSession(ctx), resolver.Request{Text: text, UseRemote: useRemote})
	s.remember(ctx, text, out)
	return out
}

func (s *Service) classifyLabels(labels []string) []fields.ClassifiedField {
	var out []fields.ClassifiedField
	seen := map[string]bool{}
	for _, l := range labels {
		f, ok := s.deps.Resolver.Classifier().ClassifyEvidence([]string{l})
		if !ok || seen[f.RawLabel] {
			continue
		}
		seen[f.RawLabel] = true
		out = append(out, f)
	}
	return out
}

// ExtractField extracts the value for one control.
func (s *Service) ExtractField(ctx context.Context, req FieldRequest) (resolver.Outcome, error) {
	if err := s.check(req); err != nil {
		return resolver.Outcome{}, err
	}

	desc := page.PageInputDescriptor{
		ElementKind:  page.KindInput,
		InputType:    "text",
		IsVisible:    true,
		EvidenceText: req.Evidence,
		AfterText:    req.After,
	}
	if !req.PageSource.IsEmpty() {
		doc, err := s.loadPage(ctx, req.PageSource)
		if err != nil {
			return resolver.Outcome{}, err
		}
		found, ok := findDescriptor(s.deps.Resolver.ScanPage(doc), req.Selector)
		if !ok {
			return resolver.Outcome{}, fmt.Errorf("%w: %q", ErrFieldNotFound, req.Selector)
		}
		desc = found
	}

	out := s.deps.Resolver.ExtractField(ctx, s.acquireSession(ctx), desc, req.Text, req.UseRemote)
	s.remember(ctx, req.Text, out)
	return out, nil
}

// findDescriptor matches selector against XPath, id and name, in that order.
func findDescriptor(descs []page.PageInputDescriptor, selector string) (page.PageInputDescriptor, bool) {
	if selector == "" {
		return page.PageInputDescriptor{}, false
	}
	for _, match := range []func(page.PageInputDescriptor) bool{
		func(d page.PageInputDescriptor) bool { return d.XPath == selector },
		func(d page.PageInputDescriptor) bool { return d.ID != "" && d.ID == selector },
		func(d page.PageInputDescriptor) bool { return d.Name != "" && d.Name == selector },
	} {
		for _, d := range descs {
			if match(d) {
				return d, true
			}
		}
	}
	return page.PageInputDescriptor{}, false
}

// PlanFill resolves a page and plans writing the values back.
func (s *Service) PlanFill(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	doc, err := s.loadPage(ctx, req.PageSource)
	if err != nil {
		return nil, err
	}
	if req.Username != "" {
		return s.planLogin(doc, req.Username, req.Password)
	}
	return s.planDocument(ctx, doc, req.Text, req.Data, req.UseRemote), nil
}

func (s *Service) planLogin(doc *page.Document, username, password string) (*PlanResult, error) {
	descs := s.deps.Resolver.ScanPage(doc)
	plan, err := fill.PlanLogin(descs, username, password)
	if err != nil {
		return nil, err
	}
	return &PlanResult{
		Extraction: resolver.Outcome{
			Success:     true,
			Source:      resolver.SourceLocal,
			Data:        extract.Result{"username": username},
			Descriptors: descs,
		},
		Plan: plan,
	}, nil
}

func (s *Service) planDocument(ctx context.Context, doc *page.Document, text string, data map[string]string, useRemote bool) *PlanResult {
	var out resolver.Outcome
	if data != nil {
		descs := s.deps.Resolver.ScanPage(doc)
		result := extract.Result{}
		for k, v := range data {
			result.Set(k, v)
		}
		out = resolver.Outcome{
			Success:     true,
			Source:      resolver.SourceLocal,
			Data:        result,
			Descriptors: descs,
			Fields:      s.deps.Resolver.ClassifyPageFields(descs),
		}
	} else {
		out = s.deps.Resolver.ResolvePage(ctx, s.acquireSession(ctx), doc, text, useRemote)
		s.remember(ctx, text, out)
	}

	res := &PlanResult{Extraction: out}
	if out.Success {
		res.Plan = s.deps.Planner.Plan(out.Descriptors, out.Data)
	} else {
		res.Plan = fill.Plan{Message: out.Reason, Actions: []fill.Action{}}
	}
	return res
}

// FillURL opens a live page, resolves it, and applies the fill plan unless
// DryRun is set.
func (s *Service) FillURL(ctx context.Context, req FillURLRequest) (*FillURLResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if s.deps.Browser == nil {
		return nil, ErrBrowserDisabled
	}

	tab, err := s.deps.Browser.Open(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	doc, err := tab.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	res := &FillURLResult{
		PlanResult: *s.planDocument(ctx, doc, req.Text, nil, req.UseRemote),
		URL:        req.URL,
	}
	if req.DryRun || !res.Plan.Success {
		return res, nil
	}

	report, err := tab.Apply(ctx, res.Plan.Actions)
	if err != nil {
		return nil, err
	}
	res.Applied = &report
	return res, nil
}

// PDFFields describes and classifies the AcroForm fields of a PDF.
func (s *Service) PDFFields(_ context.Context, req PDFRequest) (*ScanResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	path, err := s.deps.Files.Resolve(req.Path, ".pdf")
	if err != nil {
		return nil, err
	}
	descs, err := pdfform.ReadFields(path)
	if err != nil {
		return nil, err
	}
	return &ScanResult{
		Total:       len(descs),
		Descriptors: descs,
		Fields:      s.deps.Resolver.ClassifyPageFields(descs),
	}, nil
}

// PDFExtract extracts values for a PDF's form fields, from the given text
// or from the PDF's own text layer.
func (s *Service) PDFExtract(ctx context.Context, req PDFExtractRequest) (resolver.Outcome, error) {
	if err := s.check(req); err != nil {
		return resolver.Outcome{}, err
	}
	path, err := s.deps.Files.Resolve(req.Path, ".pdf")
	if err != nil {
		return resolver.Outcome{}, err
	}

	descs, err := pdfform.ReadFields(path)
	if err != nil {
		return resolver.Outcome{}, err
	}

	text := req.Text
	if strings.TrimSpace(text) == "" {
		text, _, err = pdfform.ReadText(path, s.deps.MaxTextSize)
		if err != nil {
			return resolver.Outcome{}, err
		}
	}

	out := s.deps.Resolver.Extract(ctx, s.acquireSession(ctx), resolver.Request{
		Text:      text,
		Fields:    s.deps.Resolver.ClassifyPageFields(descs),
		UseRemote: req.UseRemote,
	})
	out.Descriptors = descs
	s.remember(ctx, text, out)
	return out, nil
}

// Login signs in and returns the new status.
func (s *Service) Login(ctx context.Context, creds session.Credentials) (session.Status, error) {
	return s.deps.Sessions.Login(ctx, creds)
}

// Logout signs out and forgets the last extraction.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.deps.Sessions.Logout(ctx); err != nil {
		return err
	}
	if err := s.deps.History.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear extraction history", zap.Error(err))
	}
	return nil
}

// Status reports the current login.
func (s *Service) Status(ctx context.Context) (session.Status, error) {
	return s.deps.Sessions.Status(ctx)
}

// LastResult returns the last successful extraction.
func (s *Service) LastResult(ctx context.Context) (store.Extraction, bool, error) {
	return s.deps.History.Last(ctx)
}
