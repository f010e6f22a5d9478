// Package llm calls the optional remote extraction service.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/logging"
	"github.com/a3tai/mcp-form-filler/internal/page"
)

// Protocol selects the request and response shape of the remote service.
type Protocol string

const (
	// ProtocolExtract posts {text} or {text, labels} and expects an object.
	ProtocolExtract Protocol = "extract"
	// ProtocolChat talks to an OpenAI compatible chat completions endpoint.
	ProtocolChat Protocol = "chat"
	// ProtocolField posts {before_texts, after_texts, content} for one field.
	ProtocolField Protocol = "field"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTimeout     = 30 * time.Second
	chatTemperature    = 0.1
	chatMaxTokens      = 500
	maxResponseBytes   = 1 << 20
	genericFieldPrompt = "姓名(name)、电话(phone)、邮箱(email)、地址(address)、城市(city)、省份(province)、" +
		"国家(country)、邮编(zipcode)、公司(company)、职位(title)、生日(birthday)、性别(gender)、身份证(idcard)"
)

var (
	// ErrNotConfigured is returned when no endpoint is set.
	ErrNotConfigured = errors.New("remote extraction service not configured")
	// ErrRemoteStatus is returned for non-2xx responses.
	ErrRemoteStatus = errors.New("remote service returned an error status")
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("remote service rejected the credentials")
	// ErrUnparseable is returned when the body holds no usable JSON object.
	ErrUnparseable = errors.New("unparseable remote content")
)

// Config configures a Client.
type Config struct {
	Endpoint string
	Protocol Protocol
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Request is one extraction call.
type Request struct {
	Text string
	// Labels switches extract and chat calls to label mode.
	Labels []string
	// BeforeTexts and AfterTexts are used by the field protocol.
	BeforeTexts []string
	AfterTexts  []string
	// Authorization is the session header value, if any.
	Authorization string
}

// Client talks to the remote extraction service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     *bluemonday.Policy
	logger     *zap.Logger
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolExtract
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		policy:     bluemonday.StrictPolicy(),
		logger:     logging.OrNop(logger).Named("llm"),
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.Endpoint != ""
}

// Protocol returns the configured protocol.
func (c *Client) Protocol() Protocol {
	return c.cfg.Protocol
}

// Extract sends one request and returns the field values from the reply.
// Values are stripped of markup; blank values are dropped.
func (c *Client) Extract(ctx context.Context, req Request) (map[string]string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, auth := c.buildBody(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("remote extraction finished",
		zap.String("protocol", string(c.cfg.Protocol)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w (status %d)", ErrUnauthorized, ErrRemoteStatus, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrRemoteStatus, resp.StatusCode)
	}

	content := string(data)
	if c.cfg.Protocol == ProtocolChat {
		content, err = chatContent(data)
		if err != nil {
			return nil, err
		}
	}

	values, err := ParseObject(content)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		if page.HasMarkup(v) {
			v = html.UnescapeString(c.policy.Sanitize(v))
		}
		clean := strings.TrimSpace(v)
		if clean == "" {
			delete(values, k)
			continue
		}
		values[k] = clean
	}
	return values, nil
}

func (c *Client) buildBody(req Request) (any, string) {
	auth := req.Authorization

	switch c.cfg.Protocol {
	case ProtocolChat:
		if c.cfg.APIKey != "" {
			auth = "Bearer " + c.cfg.APIKey
		}
		return chatRequest{
			Model: c.cfg.Model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt(req.Labels)},
				{Role: "user", Content: req.Text},
			},
			Temperature: chatTemperature,
			MaxTokens:   chatMaxTokens,
		}, auth
	case ProtocolField:
		if auth == "" && c.cfg.APIKey != "" {
			auth = "Bearer " + c.cfg.APIKey
		}
		return fieldRequest{
			BeforeTexts: nonNil(req.BeforeTexts),
			AfterTexts:  nonNil(req.AfterTexts),
			Content:     req.Text,
		}, auth
	default:
		if auth == "" && c.cfg.APIKey != "" {
			auth = "Bearer " + c.cfg.APIKey
		}
		return extractRequest{Text: req.Text, Labels: req.Labels}, auth
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type extractRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels,omitempty"`
}

type fieldRequest struct {
	BeforeTexts []string `json:"before_texts"`
	AfterTexts  []string `json:"after_texts"`
	Content     string   `json:"content"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func chatContent(data []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: chat response: %v", ErrUnparseable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat response has no choices", ErrUnparseable)
	}
	return resp.Choices[0].Message.Content, nil
}

func systemPrompt(labels []string) string {
	if len(labels) == 0 {
		return "你是一个表单信息提取助手。请从用户提供的文本中提取常见的表单字段信息，并以JSON格式返回，不要有任何其他说明。" +
			"提取以下字段（如果存在）：" + genericFieldPrompt + "。只输出JSON格式，不要其他任何文字说明。"
	}
	return "你是一个表单信息提取助手。请从用户提供的文本中提取表单所需的字段信息，并以JSON格式返回，不要有任何其他说明。" +
		"需要提取的字段标签有：" + strings.Join(labels, ", ") + "。" +
		"以各标签为键，提取的对应值为值，组成JSON格式返回。只输出JSON格式，不要其他任何文字说明。"
}
