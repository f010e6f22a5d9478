package formfill

import (
	"github.com/a3tai/mcp-form-filler/internal/browser"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/page"
	"github.com/a3tai/mcp-form-filler/internal/resolver"
)

// Request Types

// PageSource names the page to work on. Exactly one of the fields is used,
// checked in the order HTML, Snapshot, Path, URL.
type PageSource struct {
	HTML     string `json:"html"`
	Snapshot string `json:"snapshot"`
	Path     string `json:"path"`
	URL      string `json:"url" validate:"omitempty,url"`
}

// IsEmpty reports whether no source was given.
func (p PageSource) IsEmpty() bool {
	return p.HTML == "" && p.Snapshot == "" && p.Path == "" && p.URL == ""
}

// ScanRequest represents a request to scan a page for form fields
type ScanRequest struct {
	PageSource
}

// ExtractRequest represents a request to extract values for a page or a
// list of labels. With neither, extraction is generic.
type ExtractRequest struct {
	PageSource
	Text      string   `json:"text" validate:"required"`
	Labels    []string `json:"labels" validate:"omitempty,dive,max=200"`
	UseRemote bool     `json:"use_remote"`
}

// FieldRequest represents a request to extract the value of one control,
// picked from a page by selector or described directly by its evidence.
type FieldRequest struct {
	PageSource
	Text      string   `json:"text" validate:"required"`
	Selector  string   `json:"selector"`
	Evidence  []string `json:"evidence"`
	After     []string `json:"after"`
	UseRemote bool     `json:"use_remote"`
}

// PlanRequest represents a request to plan filling a page. Data, when
// given, is used instead of extracting from Text. Username and Password
// plan a login form instead.
type PlanRequest struct {
	PageSource
	Text      string            `json:"text" validate:"required_without_all=Data Username"`
	Data      map[string]string `json:"data"`
	Username  string            `json:"username" validate:"required_with=Password"`
	Password  string            `json:"password" validate:"required_with=Username"`
	UseRemote bool              `json:"use_remote"`
}

// FillURLRequest represents a request to fill a live page.
type FillURLRequest struct {
	URL       string `json:"url" validate:"required,url"`
	Text      string `json:"text" validate:"required"`
	UseRemote bool   `json:"use_remote"`
	DryRun    bool   `json:"dry_run"`
}

// PDFRequest represents a request about a PDF form.
type PDFRequest struct {
	Path string `json:"path" validate:"required"`
}

// PDFExtractRequest represents a request to extract values for a PDF
// form. Without Text the PDF's own text layer is used.
type PDFExtractRequest struct {
	Path      string `json:"path" validate:"required"`
	Text      string `json:"text"`
	UseRemote bool   `json:"use_remote"`
}

// Response Types

// ScanResult describes the controls of a page.
type ScanResult struct {
	URL         string                     `json:"url,omitempty"`
	Title       string                     `json:"title,omitempty"`
	Total       int                        `json:"total"`
	Descriptors []page.PageInputDescriptor `json:"descriptors"`
	Fields      []fields.ClassifiedField   `json:"fields"`
}

// PlanResult pairs an extraction outcome with the fill plan built from it.
type PlanResult struct {
	Extraction resolver.Outcome `json:"extraction"`
	Plan       fill.Plan        `json:"plan"`
}

// FillURLResult reports a live fill.
type FillURLResult struct {
	PlanResult
	URL     string               `json:"url"`
	Applied *browser.ApplyReport `json:"applied,omitempty"`
}

// ToolInfo describes one tool for server_info.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerInfo describes the running server.
type ServerInfo struct {
	ServerName     string     `json:"serverName"`
	Version        string     `json:"version"`
	Directory      string     `json:"directory"`
	MaxFileSize    int64      `json:"maxFileSize"`
	RemoteEnabled  bool       `json:"remoteEnabled"`
	BrowserEnabled bool       `json:"browserEnabled"`
	FieldTypes     []string   `json:"fieldTypes"`
	Tools          []ToolInfo `json:"tools"`
}
