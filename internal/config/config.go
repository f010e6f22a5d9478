package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-form-filler/internal/logging"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Store backends
	StoreMemory = "memory"
	StoreRedis  = "redis"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxFileSize   = 20 * 1024 * 1024 // 20MB
	DefaultEvidenceLimit = 3
	DefaultAncestorDepth = 5
	DefaultLLMProtocol   = "extract"
	DefaultLLMTimeout    = 30 * time.Second
	DefaultSessionTTL    = 24 * time.Hour
	DefaultRedisAddr     = "127.0.0.1:6379"
	DefaultBrowserWait   = 30 * time.Second

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "MCP_FORM"
)

// LLMConfig configures the optional remote extraction service.
type LLMConfig struct {
	Endpoint string
	Protocol string // extract, chat or field
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// SessionConfig configures login handling.
type SessionConfig struct {
	LoginURL    string
	TokenSecret string
	TTL         time.Duration
}

// StoreConfig selects where session state and history live.
type StoreConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// BrowserConfig configures the Chrome page accessor.
type BrowserConfig struct {
	Enabled   bool
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
}

// Config holds all configuration for the form filler MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directory that file inputs (HTML snapshots, PDFs) must live under
	Directory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogFormat   string
	MaxFileSize int64

	// Engine tuning
	EvidenceLimit  int
	AncestorDepth  int
	VocabularyFile string

	LLM     LLMConfig
	Session SessionConfig
	Store   StoreConfig
	Browser BrowserConfig
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		Directory:     currentDir,
		Version:       "1.0.0",
		ServerName:    "mcp-form-filler",
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		MaxFileSize:   DefaultMaxFileSize,
		EvidenceLimit: DefaultEvidenceLimit,
		AncestorDepth: DefaultAncestorDepth,
		LLM: LLMConfig{
			Protocol: DefaultLLMProtocol,
			Timeout:  DefaultLLMTimeout,
		},
		Session: SessionConfig{
			TTL: DefaultSessionTTL,
		},
		Store: StoreConfig{
			Backend:   StoreMemory,
			RedisAddr: DefaultRedisAddr,
		},
		Browser: BrowserConfig{
			Timeout: DefaultBrowserWait,
		},
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every key shared by flags, env vars and viper.
var flagKeys = []string{
	"mode", "host", "port", "dir", "loglevel", "logformat", "maxfilesize",
	"evidence-limit", "ancestor-depth", "vocabulary",
	"llm-endpoint", "llm-protocol", "llm-model", "llm-api-key", "llm-timeout",
	"login-url", "token-secret", "session-ttl",
	"store", "redis-addr", "redis-password", "redis-db",
	"browser", "browser-remote-url", "browser-timeout", "browser-no-sandbox",
}

// setupViperEnvironment configures viper with environment variables and defaults.
// Dashes in keys become underscores, so llm-endpoint reads MCP_FORM_LLM_ENDPOINT.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("evidence-limit", cfg.EvidenceLimit)
	viper.SetDefault("ancestor-depth", cfg.AncestorDepth)
	viper.SetDefault("vocabulary", cfg.VocabularyFile)
	viper.SetDefault("llm-endpoint", cfg.LLM.Endpoint)
	viper.SetDefault("llm-protocol", cfg.LLM.Protocol)
	viper.SetDefault("llm-model", cfg.LLM.Model)
	viper.SetDefault("llm-api-key", cfg.LLM.APIKey)
	viper.SetDefault("llm-timeout", cfg.LLM.Timeout)
	viper.SetDefault("login-url", cfg.Session.LoginURL)
	viper.SetDefault("token-secret", cfg.Session.TokenSecret)
	viper.SetDefault("session-ttl", cfg.Session.TTL)
	viper.SetDefault("store", cfg.Store.Backend)
	viper.SetDefault("redis-addr", cfg.Store.RedisAddr)
	viper.SetDefault("redis-password", cfg.Store.RedisPassword)
	viper.SetDefault("redis-db", cfg.Store.RedisDB)
	viper.SetDefault("browser", cfg.Browser.Enabled)
	viper.SetDefault("browser-remote-url", cfg.Browser.RemoteURL)
	viper.SetDefault("browser-timeout", cfg.Browser.Timeout)
	viper.SetDefault("browser-no-sandbox", cfg.Browser.NoSandbox)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for SSE over HTTP")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory containing HTML snapshots and PDF forms")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (console, json)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")

	pflag.Int("evidence-limit", cfg.EvidenceLimit, "Evidence strings kept per field (1-5)")
	pflag.Int("ancestor-depth", cfg.AncestorDepth, "Ancestor levels searched for preceding label text")
	pflag.String("vocabulary", cfg.VocabularyFile, "YAML file with extra field synonyms")

	pflag.String("llm-endpoint", cfg.LLM.Endpoint, "Remote extraction service URL (empty disables remote extraction)")
	pflag.String("llm-protocol", cfg.LLM.Protocol, "Remote protocol (extract, chat, field)")
	pflag.String("llm-model", cfg.LLM.Model, "Model name for the chat protocol")
	pflag.String("llm-api-key", cfg.LLM.APIKey, "API key for the chat protocol")
	pflag.Duration("llm-timeout", cfg.LLM.Timeout, "Remote extraction timeout")

	pflag.String("login-url", cfg.Session.LoginURL, "Remote login endpoint (empty for local login)")
	pflag.String("token-secret", cfg.Session.TokenSecret, "Secret used to sign session tokens")
	pflag.Duration("session-ttl", cfg.Session.TTL, "Session lifetime")

	pflag.String("store", cfg.Store.Backend, "State store (memory, redis)")
	pflag.String("redis-addr", cfg.Store.RedisAddr, "Redis address")
	pflag.String("redis-password", cfg.Store.RedisPassword, "Redis password")
	pflag.Int("redis-db", cfg.Store.RedisDB, "Redis database")

	pflag.Bool("browser", cfg.Browser.Enabled, "Enable live page tools backed by Chrome")
	pflag.String("browser-remote-url", cfg.Browser.RemoteURL, "DevTools URL of a running Chrome")
	pflag.Duration("browser-timeout", cfg.Browser.Timeout, "Timeout for each browser operation")
	pflag.Bool("browser-no-sandbox", cfg.Browser.NoSandbox, "Run Chrome without sandbox")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Form Filler - A Model Context Protocol server that recognises form fields "+
			"and extracts personal information for them\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                     "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                # SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --llm-endpoint=http://localhost:9000/extract "+
			"# enable remote extraction\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every option can be set as %s_<OPTION>, with dashes as underscores,\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  for example %s_MODE, %s_LLM_ENDPOINT, %s_REDIS_ADDR.\n", envPrefix, envPrefix, envPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	cfg.EvidenceLimit = viper.GetInt("evidence-limit")
	cfg.AncestorDepth = viper.GetInt("ancestor-depth")
	cfg.VocabularyFile = viper.GetString("vocabulary")

	cfg.LLM = LLMConfig{
		Endpoint: viper.GetString("llm-endpoint"),
		Protocol: viper.GetString("llm-protocol"),
		Model:    viper.GetString("llm-model"),
		APIKey:   viper.GetString("llm-api-key"),
		Timeout:  viper.GetDuration("llm-timeout"),
	}
	cfg.Session = SessionConfig{
		LoginURL:    viper.GetString("login-url"),
		TokenSecret: viper.GetString("token-secret"),
		TTL:         viper.GetDuration("session-ttl"),
	}
	cfg.Store = StoreConfig{
		Backend:       viper.GetString("store"),
		RedisAddr:     viper.GetString("redis-addr"),
		RedisPassword: viper.GetString("redis-password"),
		RedisDB:       viper.GetInt("redis-db"),
	}
	cfg.Browser = BrowserConfig{
		Enabled:   viper.GetBool("browser"),
		RemoteURL: viper.GetString("browser-remote-url"),
		Timeout:   viper.GetDuration("browser-timeout"),
		NoSandbox: viper.GetBool("browser-no-sandbox"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when listening
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("directory cannot be empty")
	}

	// Create the directory if it doesn't exist
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.LogFormat)
	}

	if c.EvidenceLimit < 1 || c.EvidenceLimit > 5 {
		return errors.New("evidence limit must be between 1 and 5")
	}
	if c.AncestorDepth < 1 {
		return errors.New("ancestor depth must be positive")
	}

	switch c.LLM.Protocol {
	case "extract", "chat", "field":
	default:
		return fmt.Errorf("invalid llm protocol: %s (must be one of: extract, chat, field)", c.LLM.Protocol)
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("redis address is required for the redis store")
		}
	default:
		return fmt.Errorf("invalid store: %s (must be memory or redis)", c.Store.Backend)
	}

	if c.Browser.Enabled && c.Browser.Timeout <= 0 {
		return errors.New("browser timeout must be positive")
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// RemoteEnabled reports whether a remote extraction endpoint is configured.
func (c *Config) RemoteEnabled() bool {
	return c.LLM.Endpoint != ""
}

// LoggingConfig returns the logger settings for the current mode. In stdio
// mode logs go to stderr and, unless debugging, only warnings and errors are
// written.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.Config{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
	if c.IsStdioMode() && !c.IsDebug() {
		lc.Level = "warn"
	}
	return lc
}

// String returns a string representation of the configuration. Secrets are
// not included.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"EvidenceLimit: %d, Remote: %t, Store: %s, Browser: %t}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel, c.MaxFileSize,
		c.EvidenceLimit, c.RemoteEnabled(), c.Store.Backend, c.Browser.Enabled)
}

// IsServerMode returns true if the server is running in SSE server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
