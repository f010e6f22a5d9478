// Package browser reads and fills live pages through Chrome DevTools.
package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/logging"
	"github.com/a3tai/mcp-form-filler/internal/page"
)

const defaultTimeout = 30 * time.Second

//go:embed capture.js
var captureScript string

//go:embed apply.js
var applyScript string

// ErrClosed is returned by operations on a closed Browser.
var ErrClosed = errors.New("browser is closed")

// Config configures a Browser.
type Config struct {
	// DefaultTimeout bounds each page operation.
	DefaultTimeout time.Duration
	// RemoteURL is the DevTools websocket URL of a running Chrome. When
	// empty a local headless Chrome is launched on first use.
	RemoteURL string
	// NoSandbox is needed when Chrome runs as root, e.g. in containers.
	NoSandbox bool
	Logger    *zap.Logger
}

// Browser owns one Chrome allocator shared by all tabs.
type Browser struct {
	cfg         Config
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// New prepares the allocator. Chrome itself starts with the first tab.
func New(cfg Config) *Browser {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	b := &Browser{cfg: cfg, logger: logging.OrNop(cfg.Logger).Named("browser")}

	if cfg.RemoteURL != "" {
		b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return b
	}
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return b
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-sync", true),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// Close shuts down Chrome and every open tab.
func (b *Browser) Close() {
	b.allocCancel()
}

// Tab is one open page.
type Tab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *zap.Logger
}

// Open navigates a new tab to url and waits for the body to be ready.
func (b *Browser) Open(ctx context.Context, url string) (*Tab, error) {
	if b.allocCtx.Err() != nil {
		return nil, ErrClosed
	}

	tabCtx, cancel := chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			b.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	t := &Tab{ctx: tabCtx, cancel: cancel, timeout: b.cfg.DefaultTimeout, logger: b.logger}

	if err := t.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	b.logger.Debug("tab opened", zap.String("url", url))
	return t, nil
}

// Close closes the tab.
func (t *Tab) Close() {
	t.cancel()
}

// run executes actions bounded by both the caller's ctx and the tab timeout.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Snapshot captures the current DOM with styles, geometry and control state.
func (t *Tab) Snapshot(ctx context.Context) (*page.Document, error) {
	var raw string
	if err := t.run(ctx, chromedp.Evaluate(captureScript, &raw)); err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}
	return page.FromSnapshot([]byte(raw))
}

// ApplyReport says how many actions reached their element.
type ApplyReport struct {
	Applied int      `json:"applied"`
	Missing []string `json:"missing"`
}

// Apply writes the actions into the page, firing input and change events on
// every touched element.
func (t *Tab) Apply(ctx context.Context, actions []fill.Action) (ApplyReport, error) {
	var report ApplyReport
	if len(actions) == 0 {
		return report, nil
	}

	expr, err := applyExpression(actions)
	if err != nil {
		return report, err
	}

	var raw string
	if err := t.run(ctx, chromedp.Evaluate(expr, &raw, asUserGesture)); err != nil {
		return report, fmt.Errorf("failed to apply fill actions: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return report, fmt.Errorf("failed to decode fill report: %w", err)
	}
	if len(report.Missing) > 0 {
		t.logger.Warn("fill targets not found", zap.Strings("xpaths", report.Missing))
	}
	return report, nil
}

// asUserGesture evaluates as if triggered by the user.
func asUserGesture(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
	return p.WithUserGesture(true)
}

func applyExpression(actions []fill.Action) (string, error) {
	payload, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("failed to encode fill actions: %w", err)
	}
	return "(" + applyScript + ")(" + string(payload) + ")", nil
}
