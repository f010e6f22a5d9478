package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/formfill"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
		os.Stdout = originalStdout
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done

	output := buf.String()
	for _, expected := range []string{
		"MCP Form Filler",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		level     string
		wantLevel zapcore.Level
	}{
		{name: "stdio quiet by default", mode: config.ModeStdio, level: "info", wantLevel: zapcore.WarnLevel},
		{name: "stdio debug", mode: config.ModeStdio, level: "debug", wantLevel: zapcore.DebugLevel},
		{name: "server info", mode: config.ModeServer, level: "info", wantLevel: zapcore.InfoLevel},
		{name: "server error", mode: config.ModeServer, level: "error", wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Mode: tt.mode, LogLevel: tt.level, LogFormat: "console"}
			logger, err := setupLogging(cfg)
			require.NoError(t, err)

			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
			}
		})
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()
	return cfg
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()

	t.Run("memory store without browser", func(t *testing.T) {
		cfg := testConfig(t)
		application, err := newApp(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer application.Close()

		require.NotNil(t, application.service)
		assert.Nil(t, application.browser)
		assert.False(t, application.service.BrowserEnabled())

		out, err := application.service.Extract(ctx, formfill.ExtractRequest{Text: "我叫张三"})
		require.NoError(t, err)
		assert.Equal(t, "张三", out.Data["name"])
	})

	t.Run("remote service configured", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LLM.Endpoint = "http://127.0.0.1:1/extract"
		application, err := newApp(ctx, cfg, nil)
		require.NoError(t, err)
		defer application.Close()

		info := application.service.Info(cfg.ServerName, cfg.Version, nil)
		assert.True(t, info.RemoteEnabled)
	})

	t.Run("vocabulary overlay", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.VocabularyFile = filepath.Join(cfg.Directory, "vocab.yaml")
		require.NoError(t, os.WriteFile(cfg.VocabularyFile, []byte("types:\n  company:\n    synonyms: [\"任职机构\"]\n"), 0o600))

		application, err := newApp(ctx, cfg, nil)
		require.NoError(t, err)
		defer application.Close()
	})

	t.Run("missing vocabulary", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.VocabularyFile = filepath.Join(cfg.Directory, "absent.yaml")

		_, err := newApp(ctx, cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vocabulary")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.Backend = config.StoreRedis
		cfg.Store.RedisAddr = "127.0.0.1:1"

		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		_, err := newApp(ctx, cfg, nil)
		assert.Error(t, err)
	})
}

func TestVersionFlagDetection(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "long", args: []string{"--version"}, want: true},
		{name: "single dash", args: []string{"-version"}, want: true},
		{name: "short", args: []string{"-v"}, want: true},
		{name: "other flags", args: []string{"--mode", "server"}, want: false},
		{name: "none", args: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := false
			for _, arg := range tt.args {
				if arg == "-version" || arg == "--version" || arg == "-v" {
					found = true
					break
				}
			}
			assert.Equal(t, tt.want, found, strings.Join(tt.args, " "))
		})
	}
}
