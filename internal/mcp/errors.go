package mcp

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-form-filler/internal/files"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/formfill"
	"github.com/a3tai/mcp-form-filler/internal/page"
	"github.com/a3tai/mcp-form-filler/internal/pdfform"
	"github.com/a3tai/mcp-form-filler/internal/session"
)

var (
	errInvalidArguments = errors.New("invalid arguments")
	errNoResult         = errors.New("no extraction has been made yet")
)

// Error codes reported next to the resolver's own failure codes.
const (
	codeInvalidArguments  = "invalid_arguments"
	codeBrowserDisabled   = "browser_disabled"
	codeFieldNotFound     = "field_not_found"
	codeNoLoginForm       = "no_login_form"
	codeInvalidFile       = "invalid_file"
	codeMalformedSnapshot = "malformed_snapshot"
	codeNoText            = "no_text"
	codeLoginFailed       = "login_failed"
	codeNoResult          = "no_result"
	codeInternal          = "internal_error"
)

type toolError struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Reason  string `json:"reason"`
}

func errorCode(err error) string {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errInvalidArguments),
		errors.Is(err, formfill.ErrNoPageSource),
		errors.Is(err, session.ErrInvalidCredentials):
		return codeInvalidArguments
	case errors.Is(err, formfill.ErrBrowserDisabled):
		return codeBrowserDisabled
	case errors.Is(err, formfill.ErrFieldNotFound):
		return codeFieldNotFound
	case errors.Is(err, fill.ErrNoLoginForm):
		return codeNoLoginForm
	case errors.Is(err, files.ErrOutsideBase),
		errors.Is(err, files.ErrUnsupported),
		errors.Is(err, files.ErrTooLarge):
		return codeInvalidFile
	case errors.Is(err, page.ErrMalformedSnapshot):
		return codeMalformedSnapshot
	case errors.Is(err, pdfform.ErrNoText):
		return codeNoText
	case errors.Is(err, session.ErrLoginFailed):
		return codeLoginFailed
	case errors.Is(err, errNoResult):
		return codeNoResult
	default:
		return codeInternal
	}
}

// errorResult turns err into a tool error with a JSON body.
func errorResult(err error) *mcp.CallToolResult {
	data, merr := json.Marshal(toolError{Code: errorCode(err), Reason: err.Error()})
	if merr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(string(data))
}
