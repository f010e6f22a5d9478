package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-form-filler/internal/evidence"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/page"
	"github.com/a3tai/mcp-form-filler/internal/pdfform"
	"github.com/a3tai/mcp-form-filler/internal/resolver"
)

type options struct {
	format        string
	text          string
	textFile      string
	vocabulary    string
	evidenceLimit int
	ancestorDepth int
	plan          bool
}

// ScanReport is the complete result of scanning one file
type ScanReport struct {
	FilePath    string                     `json:"file_path"`
	Kind        string                     `json:"kind"`
	FieldCount  int                        `json:"field_count"`
	Descriptors []page.PageInputDescriptor `json:"descriptors"`
	Fields      []fields.ClassifiedField   `json:"fields"`
	Extraction  *resolver.Outcome          `json:"extraction,omitempty"`
	Plan        *fill.Plan                 `json:"plan,omitempty"`
	ScanTime    string                     `json:"scan_time"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("form-scan", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.StringVar(&opts.text, "text", "", "Text to extract field values from")
	fs.StringVar(&opts.textFile, "text-file", "", "File holding the text to extract from")
	fs.StringVar(&opts.vocabulary, "vocabulary", "", "YAML file with extra field synonyms")
	fs.IntVar(&opts.evidenceLimit, "evidence-limit", evidence.DefaultMaxResults, "Label texts collected per control (3-5)")
	fs.IntVar(&opts.ancestorDepth, "ancestor-depth", evidence.DefaultMaxDepth, "Ancestor levels searched for label text")
	fs.BoolVar(&opts.plan, "plan", false, "Also plan writing the extracted values back")
	help := fs.BoolP("help", "h", false, "Show help message")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "form-scan - list and classify the form fields of an HTML page, page snapshot or PDF form")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "USAGE:")
		fmt.Fprintln(stderr, "  form-scan [OPTIONS] <file.html|file.json|file.pdf>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "OPTIONS:")
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "EXAMPLES:")
		fmt.Fprintln(stderr, "  form-scan signup.html")
		fmt.Fprintln(stderr, "  form-scan --text '姓名：张三 手机：13812345678' --plan signup.html")
		fmt.Fprintln(stderr, "  form-scan --format json application.pdf")
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		fs.Usage()
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one file is required\n\n")
		fs.Usage()
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 2
	}

	if opts.textFile != "" {
		data, err := os.ReadFile(opts.textFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading text: %v\n", err)
			return 1
		}
		opts.text = string(data)
	}

	report, err := scan(context.Background(), fs.Arg(0), opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := writeReport(stdout, report, opts.format); err != nil {
		fmt.Fprintf(stderr, "Error writing results: %v\n", err)
		return 1
	}
	return 0
}

func newResolver(opts options) (*resolver.Resolver, error) {
	vocab := fields.DefaultVocabulary()
	if opts.vocabulary != "" {
		v, err := fields.LoadOverlay(opts.vocabulary)
		if err != nil {
			return nil, err
		}
		vocab = v
	}
	return resolver.New(vocab,
		resolver.WithCollector(evidence.NewCollector(opts.evidenceLimit, opts.ancestorDepth)),
	), nil
}

// scan reads path, classifies its controls and, when text is given,
// extracts values for them.
func scan(ctx context.Context, path string, opts options) (*ScanReport, error) {
	start := time.Now()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	res, err := newResolver(opts)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{FilePath: absPath}
	var doc *page.Document

	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".pdf":
		report.Kind = "pdf"
		report.Descriptors, err = pdfform.ReadFields(absPath)
		if err != nil {
			return nil, err
		}
	case ".json":
		report.Kind = "snapshot"
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		if doc, err = page.FromSnapshot(data); err != nil {
			return nil, err
		}
	default:
		report.Kind = "html"
		f, err := os.Open(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		if doc, err = page.ParseHTML(f); err != nil {
			return nil, err
		}
	}

	if doc != nil {
		report.Descriptors = res.ScanPage(doc)
	}
	report.FieldCount = len(report.Descriptors)
	report.Fields = res.ClassifyPageFields(report.Descriptors)

	if strings.TrimSpace(opts.text) != "" {
		out := res.Extract(ctx, nil, resolver.Request{Text: opts.text, Fields: report.Fields})
		out.Descriptors = nil
		report.Extraction = &out

		if opts.plan {
			plan := fill.NewPlanner(res.Classifier()).Plan(report.Descriptors, out.Data)
			report.Plan = &plan
		}
	}

	report.ScanTime = time.Since(start).String()
	return report, nil
}

func writeReport(w io.Writer, report *ScanReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "File: %s (%s)\n", report.FilePath, report.Kind)
	fmt.Fprintf(w, "Controls: %d, classified: %d\n\n", report.FieldCount, len(report.Fields))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tNAME\tLABEL\tSTATE")
	for i, d := range report.Descriptors {
		label := ""
		if len(d.EvidenceText) > 0 {
			label = d.EvidenceText[0]
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, kindOf(d), d.Name, label, stateOf(d))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Fields) > 0 {
		fmt.Fprintln(w, "\nClassified fields:")
		for _, f := range report.Fields {
			fmt.Fprintf(w, "  %s -> %s\n", f.RawLabel, f.FieldType)
		}
	}

	if report.Extraction != nil {
		fmt.Fprintln(w, "\nExtraction:")
		if !report.Extraction.Success {
			fmt.Fprintf(w, "  failed: %s (%s)\n", report.Extraction.Reason, report.Extraction.Code)
		}
		for _, k := range report.Extraction.Data.Keys() {
			fmt.Fprintf(w, "  %s: %s\n", k, report.Extraction.Data[k])
		}
	}

	if report.Plan != nil {
		fmt.Fprintf(w, "\nPlan: %s\n", report.Plan.Message)
		for _, a := range report.Plan.Actions {
			fmt.Fprintf(w, "  %s %s = %q\n", a.Kind, a.XPath, a.Value)
		}
	}
	return nil
}

func kindOf(d page.PageInputDescriptor) string {
	if d.InputType == "" {
		return string(d.ElementKind)
	}
	return string(d.ElementKind) + "/" + d.InputType
}

func stateOf(d page.PageInputDescriptor) string {
	var flags []string
	if d.IsRequired {
		flags = append(flags, "required")
	}
	if !d.IsVisible {
		flags = append(flags, "hidden")
	}
	if d.IsDisabled {
		flags = append(flags, "disabled")
	}
	if d.IsReadOnly {
		flags = append(flags, "readonly")
	}
	if d.HasValue() {
		flags = append(flags, "filled")
	}
	return strings.Join(flags, ",")
}
