package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags gives each test a fresh flag set and viper instance.
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	viper.Reset()
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	original := os.Args
	os.Args = append([]string{"mcp-form-filler"}, args...)
	resetFlags()
	t.Cleanup(func() {
		os.Args = original
		resetFlags()
	})
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	withArgs(t, "--dir="+t.TempDir())

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want stdio", cfg.Mode)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.LLM.Timeout != DefaultLLMTimeout {
		t.Errorf("LoadFromFlags() LLM.Timeout = %v, want %v", cfg.LLM.Timeout, DefaultLLMTimeout)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	dir := t.TempDir()
	withArgs(t,
		"--mode=server",
		"--port=9090",
		"--dir="+dir,
		"--loglevel=debug",
		"--evidence-limit=5",
		"--llm-endpoint=http://localhost:9000/extract",
		"--llm-protocol=chat",
		"--llm-timeout=5s",
		"--session-ttl=1h",
		"--store=redis",
		"--redis-db=2",
		"--browser",
	)

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeServer || cfg.Port != 9090 {
		t.Errorf("LoadFromFlags() Mode/Port = %s/%d, want server/9090", cfg.Mode, cfg.Port)
	}
	if cfg.Directory != dir {
		t.Errorf("LoadFromFlags() Directory = %s, want %s", cfg.Directory, dir)
	}
	if cfg.EvidenceLimit != 5 {
		t.Errorf("LoadFromFlags() EvidenceLimit = %d, want 5", cfg.EvidenceLimit)
	}
	if cfg.LLM.Endpoint != "http://localhost:9000/extract" || cfg.LLM.Protocol != "chat" {
		t.Errorf("LoadFromFlags() LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("LoadFromFlags() LLM.Timeout = %v, want 5s", cfg.LLM.Timeout)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("LoadFromFlags() Session.TTL = %v, want 1h", cfg.Session.TTL)
	}
	if cfg.Store.Backend != StoreRedis || cfg.Store.RedisDB != 2 {
		t.Errorf("LoadFromFlags() Store = %+v", cfg.Store)
	}
	if !cfg.Browser.Enabled {
		t.Error("LoadFromFlags() Browser.Enabled = false, want true")
	}
}

func TestLoadFromFlags_EnvVars(t *testing.T) {
	withArgs(t, "--dir="+t.TempDir())
	t.Setenv("MCP_FORM_LLM_ENDPOINT", "http://remote/extract")
	t.Setenv("MCP_FORM_EVIDENCE_LIMIT", "4")
	t.Setenv("MCP_FORM_LOGLEVEL", "warn")

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.LLM.Endpoint != "http://remote/extract" {
		t.Errorf("LoadFromFlags() LLM.Endpoint = %s, want http://remote/extract", cfg.LLM.Endpoint)
	}
	if cfg.EvidenceLimit != 4 {
		t.Errorf("LoadFromFlags() EvidenceLimit = %d, want 4", cfg.EvidenceLimit)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %s, want warn", cfg.LogLevel)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	withArgs(t, "--dir="+t.TempDir(), "--llm-protocol=soap")

	if _, err := LoadFromFlags(); err == nil {
		t.Error("LoadFromFlags() expected error for invalid protocol")
	}
}

func TestLoadFromFlags_Version(t *testing.T) {
	withArgs(t, "--version")

	_, err := LoadFromFlags()
	if err == nil || err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want version requested", err)
	}
}
