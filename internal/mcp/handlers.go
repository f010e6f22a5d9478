package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-form-filler/internal/formfill"
	"github.com/a3tai/mcp-form-filler/internal/resolver"
	"github.com/a3tai/mcp-form-filler/internal/session"
)

// bindArguments decodes the tool arguments into dst.
func bindArguments(request mcp.CallToolRequest, dst any) error {
	data, err := json.Marshal(request.GetArguments())
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

func (s *Server) handleScanHTML(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.ScanRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}
	req.Snapshot, req.URL = "", ""
	if req.HTML == "" && req.Path == "" {
		return errorResult(fmt.Errorf("%w: html or path is required", errInvalidArguments)), nil
	}

	result, err := s.service.Scan(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleScanSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.ScanRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}
	req.HTML, req.URL = "", ""
	if req.Snapshot == "" && req.Path == "" {
		return errorResult(fmt.Errorf("%w: snapshot or path is required", errInvalidArguments)), nil
	}

	result, err := s.service.Scan(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleScanURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return errorResult(fmt.Errorf("%w: %v", errInvalidArguments, err)), nil
	}

	result, err := s.service.Scan(ctx, formfill.ScanRequest{PageSource: formfill.PageSource{URL: url}})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.ExtractRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}

	out, err := s.service.Extract(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return outcomeResult(out), nil
}

func (s *Server) handleExtractGeneric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req struct {
		Text      string `json:"text"`
		UseRemote bool   `json:"use_remote"`
	}
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}

	return outcomeResult(s.service.ExtractGeneric(ctx, req.Text, req.UseRemote)), nil
}

func (s *Server) handleExtractField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.FieldRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}

	out, err := s.service.ExtractField(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return outcomeResult(out), nil
}

func (s *Server) handleFillPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.PlanRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}

	result, err := s.service.PlanFill(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	if !result.Extraction.Success {
		return outcomeResult(result.Extraction), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleFillURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.FillURLRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}

	result, err := s.service.FillURL(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	if !result.Extraction.Success {
		return outcomeResult(result.Extraction), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handlePDFFormFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return errorResult(fmt.Errorf("%w: %v", errInvalidArguments, err)), nil
	}

	result, err := s.service.PDFFields(ctx, formfill.PDFRequest{Path: path})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handlePDFExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req formfill.PDFExtractRequest
	if err := bindArguments(request, &req); err != nil {
		return errorResult(err), nil
	}

	out, err := s.service.PDFExtract(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return outcomeResult(out), nil
}

func (s *Server) handleLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var creds session.Credentials
	if err := bindArguments(request, &creds); err != nil {
		return errorResult(err), nil
	}

	status, err := s.service.Login(ctx, creds)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(struct {
		Success bool `json:"success"`
		session.Status
	}{true, status}), nil
}

func (s *Server) handleLogout(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.service.Logout(ctx); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]bool{"success": true}), nil
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.service.Status(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(status), nil
}

func (s *Server) handleLastResult(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	last, ok, err := s.service.LastResult(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if !ok {
		return errorResult(errNoResult), nil
	}
	return jsonResult(last), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.service.Info(s.config.ServerName, s.config.Version, s.tools)), nil
}

// outcomeResult reports resolver failures as tool errors carrying the
// outcome itself.
func outcomeResult(out resolver.Outcome) *mcp.CallToolResult {
	if out.Success {
		return jsonResult(out)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultError(string(data))
}
