package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/browser"
	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/evidence"
	"github.com/a3tai/mcp-form-filler/internal/fields"
	"github.com/a3tai/mcp-form-filler/internal/files"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/formfill"
	"github.com/a3tai/mcp-form-filler/internal/llm"
	"github.com/a3tai/mcp-form-filler/internal/pdfform"
	"github.com/a3tai/mcp-form-filler/internal/resolver"
	"github.com/a3tai/mcp-form-filler/internal/session"
	"github.com/a3tai/mcp-form-filler/internal/store"
)

// app owns the long-lived collaborators behind the MCP server.
type app struct {
	service *formfill.Service
	store   store.Store
	browser *browser.Browser
}

// Close releases the browser and the store.
func (a *app) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Backend != config.StoreRedis {
		return store.NewMemoryStore(), nil
	}
	rs, err := store.NewRedisStore(ctx, store.RedisConfig{
		Addr:      cfg.Store.RedisAddr,
		Password:  cfg.Store.RedisPassword,
		DB:        cfg.Store.RedisDB,
		KeyPrefix: store.DefaultKeyPrefix,
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func loadVocabulary(cfg *config.Config) (*fields.Vocabulary, error) {
	if cfg.VocabularyFile == "" {
		return fields.DefaultVocabulary(), nil
	}
	vocab, err := fields.LoadOverlay(cfg.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return vocab, nil
}

// newApp wires the service from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	vocab, err := loadVocabulary(cfg)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{store: st}

	validator, err := files.NewValidator(cfg.Directory, cfg.MaxFileSize)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []resolver.Option{
		resolver.WithCollector(evidence.NewCollector(cfg.EvidenceLimit, cfg.AncestorDepth)),
		resolver.WithLogger(logger),
	}
	if cfg.RemoteEnabled() {
		client := llm.NewClient(llm.Config{
			Endpoint: cfg.LLM.Endpoint,
			Protocol: llm.Protocol(cfg.LLM.Protocol),
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			Timeout:  cfg.LLM.Timeout,
		}, &http.Client{Timeout: cfg.LLM.Timeout}, logger)
		opts = append(opts, resolver.WithRemote(client))
	}
	res := resolver.New(vocab, opts...)

	if cfg.Browser.Enabled {
		a.browser = browser.New(browser.Config{
			DefaultTimeout: cfg.Browser.Timeout,
			RemoteURL:      cfg.Browser.RemoteURL,
			NoSandbox:      cfg.Browser.NoSandbox,
			Logger:         logger,
		})
	}

	a.service, err = formfill.NewService(formfill.Dependencies{
		Resolver: res,
		Planner:  fill.NewPlanner(res.Classifier()),
		Sessions: session.NewManager(session.Config{
			LoginURL: cfg.Session.LoginURL,
			Secret:   cfg.Session.TokenSecret,
			TTL:      cfg.Session.TTL,
		}, st, nil, logger),
		History:     store.NewHistory(st, cfg.Session.TTL),
		Files:       validator,
		Browser:     a.browser,
		Logger:      logger,
		MaxTextSize: pdfform.DefaultMaxTextSize,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
