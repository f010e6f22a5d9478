package resolver

import (
	"github.com/google/uuid"

	"github.com/a3tai/mcp-form-filler/internal/extract"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/page"
)

// Code identifies a user-visible failure.
type Code string

const (
	CodeNoFormElements         Code = "no_form_elements"
	CodeAuthenticationRequired Code = "authentication_required"
	CodeEmptyText              Code = "empty_text"
	CodeUnidentifiedField      Code = "unidentified_field"
)

// Source says where the values came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Mode says how result keys are formed.
type Mode string

const (
	ModeGeneric Mode = "generic"
	ModeLabels  Mode = "labels"
	ModeField   Mode = "field"
)

// Outcome is the structured result of a resolver call. Failures carry a
// Code and a human readable Reason and never an error value.
type Outcome struct {
	Success     bool                       `json:"success"`
	Code        Code                       `json:"code,omitempty"`
	Reason      string                     `json:"reason,omitempty"`
	RequestID   string                     `json:"requestId"`
	Source      Source                     `json:"source,omitempty"`
	Mode        Mode                       `json:"mode,omitempty"`
	Fields      []fields.ClassifiedField   `json:"fields,omitempty"`
	Descriptors []page.PageInputDescriptor `json:"descriptors,omitempty"`
	Data        extract.Result             `json:"data"`
}

func failure(code Code, reason string) Outcome {
	return Outcome{
		Success:   false,
		Code:      code,
		Reason:    reason,
		RequestID: uuid.NewString(),
		Data:      extract.Result{},
	}
}

func success(source Source, mode Mode, data extract.Result) Outcome {
	if data == nil {
		data = extract.Result{}
	}
	return Outcome{
		Success:   true,
		RequestID: uuid.NewString(),
		Source:    source,
		Mode:      mode,
		Data:      data,
	}
}

const (
	reasonNoFormElements = "当前页面未检测到表单元素"
	reasonAuthRequired   = "请先登录后再使用远程提取服务"
	reasonEmptyText      = "请输入需要提取的文本"
	reasonUnidentified   = "无法识别该字段"
)
