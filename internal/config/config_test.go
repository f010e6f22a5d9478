package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}
	if cfg.ServerName != "mcp-form-filler" {
		t.Errorf("Expected default server name to be 'mcp-form-filler', got '%s'", cfg.ServerName)
	}
	if cfg.EvidenceLimit != 3 {
		t.Errorf("Expected default evidence limit to be 3, got %d", cfg.EvidenceLimit)
	}
	if cfg.LLM.Protocol != "extract" {
		t.Errorf("Expected default llm protocol to be 'extract', got '%s'", cfg.LLM.Protocol)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Expected default session ttl to be 24h, got %v", cfg.Session.TTL)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("Expected default store to be memory, got '%s'", cfg.Store.Backend)
	}
	if cfg.RemoteEnabled() {
		t.Error("Expected remote extraction to be disabled by default")
	}

	currentDir, _ := os.Getwd()
	if cfg.Directory != currentDir {
		t.Errorf("Expected default directory to be '%s', got '%s'", currentDir, cfg.Directory)
	}
}

func validConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Directory = t.TempDir()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "valid stdio", modify: func(c *Config) {}},
		{name: "valid server", modify: func(c *Config) { c.Mode = ModeServer }},
		{name: "valid redis", modify: func(c *Config) { c.Store.Backend = StoreRedis }},
		{name: "invalid mode", modify: func(c *Config) { c.Mode = "invalid" }, wantErr: "mode"},
		{name: "port ignored in stdio", modify: func(c *Config) { c.Port = 0 }},
		{name: "invalid port in server", modify: func(c *Config) { c.Mode = ModeServer; c.Port = 70000 }, wantErr: "port"},
		{name: "empty directory", modify: func(c *Config) { c.Directory = "" }, wantErr: "directory"},
		{name: "zero file size", modify: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "file size"},
		{name: "bad log level", modify: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log level"},
		{name: "bad log format", modify: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log format"},
		{name: "evidence limit too high", modify: func(c *Config) { c.EvidenceLimit = 6 }, wantErr: "evidence limit"},
		{name: "evidence limit zero", modify: func(c *Config) { c.EvidenceLimit = 0 }, wantErr: "evidence limit"},
		{name: "ancestor depth zero", modify: func(c *Config) { c.AncestorDepth = 0 }, wantErr: "ancestor depth"},
		{name: "bad protocol", modify: func(c *Config) { c.LLM.Protocol = "grpc" }, wantErr: "llm protocol"},
		{name: "bad store", modify: func(c *Config) { c.Store.Backend = "etcd" }, wantErr: "store"},
		{name: "redis without addr", modify: func(c *Config) { c.Store.Backend = StoreRedis; c.Store.RedisAddr = "" }, wantErr: "redis address"},
		{name: "zero session ttl", modify: func(c *Config) { c.Session.TTL = 0 }, wantErr: "session ttl"},
		{name: "browser without timeout", modify: func(c *Config) { c.Browser.Enabled = true; c.Browser.Timeout = 0 }, wantErr: "browser timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreatesDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory = filepath.Join(t.TempDir(), "nested", "forms")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if info, err := os.Stat(cfg.Directory); err != nil || !info.IsDir() {
		t.Errorf("Validate() should have created %s", cfg.Directory)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "0.0.0.0"
	cfg.Port = 9000

	if got := cfg.Address(); got != "0.0.0.0:9000" {
		t.Errorf("Address() = %s, want 0.0.0.0:9000", got)
	}
	if !cfg.IsStdioMode() || cfg.IsServerMode() {
		t.Error("default config should be in stdio mode")
	}

	cfg.LLM.APIKey = "sk-secret"
	cfg.Session.TokenSecret = "jwt-secret"
	if s := cfg.String(); strings.Contains(s, "sk-secret") || strings.Contains(s, "jwt-secret") {
		t.Errorf("String() leaks secrets: %s", s)
	}
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		level     string
		wantLevel string
	}{
		{name: "stdio quiet", mode: ModeStdio, level: "info", wantLevel: "warn"},
		{name: "stdio debug", mode: ModeStdio, level: "debug", wantLevel: "debug"},
		{name: "server keeps level", mode: ModeServer, level: "info", wantLevel: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.level

			lc := cfg.LoggingConfig()
			if lc.Level != tt.wantLevel {
				t.Errorf("LoggingConfig().Level = %s, want %s", lc.Level, tt.wantLevel)
			}
			if lc.Output != "stderr" {
				t.Errorf("LoggingConfig().Output = %s, want stderr", lc.Output)
			}
		})
	}
}
