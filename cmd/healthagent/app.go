package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/healthagent/config"
	"github.com/tbxark/healthagent/engine"
	"github.com/tbxark/healthagent/extract"
	"github.com/tbxark/healthagent/store"
)

type app struct {
	repo    store.Repository
	manager *engine.Manager
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("store health check: %w", err)
	}
	controller, err := engine.NewController(
		extractor,
		store.Committer(repo),
		engine.WithExtractTimeout(cfg.ExtractTimeout.Std()),
		engine.WithCommitTimeout(cfg.CommitTimeout.Std()),
		engine.WithMaxFailures(cfg.MaxFailures),
	)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return &app{repo: repo, manager: engine.NewManager(controller)}, nil
}

func (a *app) Close() {
	a.manager.Close()
	if err := a.repo.Close(); err != nil {
		slog.Error("Failed to close repository", "error", err)
	}
}

// newExtractor chains the LLM extractor and the remote extractor, in that
// order. The local rules serve alone when neither is configured and are
// appended only when LocalFallback is set.
func newExtractor(ctx context.Context, cfg *config.Config) (extract.Extractor, error) {
	var chain []extract.Extractor
	if cfg.LLM.Enabled() {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		toolExtractor, err := extract.NewToolBasedExtractor(cm, extract.WithHistoryWindow(cfg.HistoryWindow))
		if err != nil {
			return nil, fmt.Errorf("create llm extractor: %w", err)
		}
		chain = append(chain, toolExtractor)
		slog.Info("LLM extractor enabled", "model", cfg.LLM.Model)
	}
	if cfg.ExtractorURL != "" {
		chain = append(chain, extract.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractTimeout.Std(), extract.WithHistoryWindow(cfg.HistoryWindow)))
		slog.Info("Remote extractor enabled", "url", cfg.ExtractorURL)
	}
	if len(chain) == 0 || cfg.LocalFallback {
		chain = append(chain, extract.NewLocalExtractor())
	}
	return extract.NewFailbackExtractor(chain...), nil
}
