package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNotConfigured(t *testing.T) {
	c := NewClient(Config{}, nil, nil)
	assert.False(t, c.Configured())

	_, err := c.Extract(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientExtractProtocol(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"name": "<b>张三</b>", "phone": "13812345678", "email": ""}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL}, nil, nil)
	values, err := c.Extract(context.Background(), Request{
		Text:          "我叫张三",
		Labels:        []string{"姓名"},
		Authorization: "Bearer session-token",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"name": "张三", "phone": "13812345678"}, values)
	assert.Equal(t, "Bearer session-token", auth)
	assert.Equal(t, "我叫张三", got["text"])
	assert.Equal(t, []any{"姓名"}, got["labels"])
}

func TestClientKeepsAngleBracketsInPlainValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"contact": "张三 <zhang@example.com>", "note": "年龄<a30", "name": "<i>李四</i>"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL}, nil, nil)
	values, err := c.Extract(context.Background(), Request{Text: "x"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"contact": "张三 <zhang@example.com>",
		"note":    "年龄<a30",
		"name":    "李四",
	}, values)
}

func TestClientFieldProtocol(t *testing.T) {
	var got fieldRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"value": "13900001111"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Protocol: ProtocolField}, nil, nil)
	values, err := c.Extract(context.Background(), Request{
		Text:        "电话 13900001111",
		BeforeTexts: []string{"联系电话"},
	})
	require.NoError(t, err)

	assert.Equal(t, "13900001111", values["value"])
	assert.Equal(t, []string{"联系电话"}, got.BeforeTexts)
	assert.Equal(t, []string{}, got.AfterTexts)
	assert.Equal(t, "电话 13900001111", got.Content)
}

func TestClientChatProtocol(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant",
			"content": "结果：{\"email\": \"zhang@example.com\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Protocol: ProtocolChat, APIKey: "sk-test"}, nil, nil)
	values, err := c.Extract(context.Background(), Request{Text: "邮箱zhang@example.com", Authorization: "Bearer s"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"email": "zhang@example.com"}, values)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "email")
	assert.Equal(t, "邮箱zhang@example.com", got.Messages[1].Content)
}

func TestClientChatPromptUsesLabels(t *testing.T) {
	assert.Contains(t, systemPrompt([]string{"联系人", "手机"}), "联系人, 手机")
	assert.Contains(t, systemPrompt(nil), "姓名(name)")
}

func TestClientFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		proto   Protocol
		target  error
	}{
		{
			name:    "forbidden",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) },
			target:  ErrUnauthorized,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			target:  ErrRemoteStatus,
		},
		{
			name:    "prose body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("sorry, no idea")) },
			target:  ErrUnparseable,
		},
		{
			name:    "chat without choices",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"choices": []}`)) },
			proto:   ProtocolChat,
			target:  ErrUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(Config{Endpoint: srv.URL, Protocol: tt.proto}, nil, nil)
			_, err := c.Extract(context.Background(), Request{Text: "x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestClientForbiddenIsAlsoStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(Config{Endpoint: srv.URL}, nil, nil).Extract(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, ErrRemoteStatus)
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, nil, nil)
	_, err := c.Extract(context.Background(), Request{Text: "x"})
	assert.Error(t, err)
}
