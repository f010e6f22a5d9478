package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/descriptions"
	"github.com/a3tai/mcp-form-filler/internal/formfill"
	"github.com/a3tai/mcp-form-filler/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *formfill.Service
	mcpServer *server.MCPServer
	logger    *zap.Logger
	tools     []formfill.ToolInfo
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *formfill.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // tool list is fixed at startup
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
		logger:    logging.OrNop(logger).Named("mcp"),
	}

	s.registerTools()

	return s, nil
}

// addTool registers a tool and records it for server_info.
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, formfill.ToolInfo{
		Name:        tool.Name,
		Description: descriptions.Summary(tool.Name),
	})
}

// pageSourceOptions are the arguments naming a page; at most one is used.
func pageSourceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("html", mcp.Description("Page markup")),
		mcp.WithString("snapshot", mcp.Description("Page snapshot as JSON ({url, title, root})")),
		mcp.WithString("path", mcp.Description("Path of a saved .html, .htm or .json page inside the server directory")),
		mcp.WithString("url", mcp.Description("Address of a live page (needs --browser)")),
	}
}

func useRemoteOption() mcp.ToolOption {
	return mcp.WithBoolean("use_remote",
		mcp.Description("Use the remote extraction service when configured (needs session_login)"),
	)
}

func withOptions(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{
		mcp.WithDescription(descriptions.GetToolDescription(name)),
	}, opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Page scanning
	s.addTool(withOptions("form_scan_html",
		mcp.WithString("html", mcp.Description("Page markup")),
		mcp.WithString("path", mcp.Description("Path of a saved .html or .htm page inside the server directory")),
	), s.handleScanHTML)

	s.addTool(withOptions("form_scan_snapshot",
		mcp.WithString("snapshot", mcp.Description("Page snapshot as JSON ({url, title, root})")),
		mcp.WithString("path", mcp.Description("Path of a .json snapshot inside the server directory")),
	), s.handleScanSnapshot)

	s.addTool(withOptions("form_scan_url",
		mcp.WithString("url", mcp.Required(), mcp.Description("Address of the page")),
	), s.handleScanURL)

	// Extraction
	extractOpts := append(pageSourceOptions(),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to extract values from")),
		mcp.WithArray("labels",
			mcp.Description("Field labels to extract when no page is given"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		useRemoteOption(),
	)
	s.addTool(withOptions("form_extract", extractOpts...), s.handleExtract)

	s.addTool(withOptions("form_extract_generic",
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to extract values from")),
		useRemoteOption(),
	), s.handleExtractGeneric)

	fieldOpts := append(pageSourceOptions(),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to extract the value from")),
		mcp.WithString("selector", mcp.Description("XPath, id or name of the control on the page")),
		mcp.WithArray("evidence",
			mcp.Description("Label texts before the control, nearest first"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("after",
			mcp.Description("Texts following the control"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		useRemoteOption(),
	)
	s.addTool(withOptions("form_extract_field", fieldOpts...), s.handleExtractField)

	// Filling
	planOpts := append(pageSourceOptions(),
		mcp.WithString("text", mcp.Description("Text to extract values from")),
		mcp.WithObject("data", mcp.Description("Values to fill, keyed by label or field type; replaces text")),
		mcp.WithString("username", mcp.Description("Plan a login form with this user name instead")),
		mcp.WithString("password", mcp.Description("Password for the login form")),
		useRemoteOption(),
	)
	s.addTool(withOptions("form_fill_plan", planOpts...), s.handleFillPlan)

	s.addTool(withOptions("form_fill_url",
		mcp.WithString("url", mcp.Required(), mcp.Description("Address of the page")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to extract values from")),
		mcp.WithBoolean("dry_run", mcp.Description("Plan only, do not write to the page")),
		useRemoteOption(),
	), s.handleFillURL)

	// PDF forms
	s.addTool(withOptions("pdf_form_fields",
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the PDF inside the server directory")),
	), s.handlePDFFormFields)

	s.addTool(withOptions("pdf_extract",
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the PDF inside the server directory")),
		mcp.WithString("text", mcp.Description("Text to extract from; defaults to the PDF's own text")),
		useRemoteOption(),
	), s.handlePDFExtract)

	// Session and results
	s.addTool(withOptions("session_login",
		mcp.WithString("username", mcp.Required(), mcp.Description("User name")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Password")),
	), s.handleLogin)
	s.addTool(withOptions("session_logout"), s.handleLogout)
	s.addTool(withOptions("session_status"), s.handleStatus)
	s.addTool(withOptions("form_last_result"), s.handleLastResult)
	s.addTool(withOptions("server_info"), s.handleServerInfo)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves on stdin/stdout until stdin closes
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode",
		zap.String("directory", s.config.Directory))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	s.logger.Info("MCP server listening", zap.String("address", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		s.logger.Info("MCP server stopped")
		return nil
	}
}
