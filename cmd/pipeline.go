package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/answer"
	"github.com/stardustx8/legalchat/internal/config"
	"github.com/stardustx8/legalchat/internal/detect"
	"github.com/stardustx8/legalchat/internal/index"
	"github.com/stardustx8/legalchat/internal/ingest"
	"github.com/stardustx8/legalchat/internal/retrieve"
	"github.com/stardustx8/legalchat/pkg/embeddings"
	"github.com/stardustx8/legalchat/pkg/llm"
)

// initStore opens the configured index backend. Callers own Close.
func initStore(ctx context.Context) (index.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Search.Driver {
	case "azure":
		var opts []index.AzureOption
		if cfg.Search.APIVersion != "" {
			opts = append(opts, index.WithAzureAPIVersion(cfg.Search.APIVersion))
		}
		return index.NewAzure(cfg.Search.Endpoint, cfg.Search.Key, cfg.Search.Index, opts...), nil
	case "postgres":
		st, err := index.NewPostgres(ctx, cfg.Search.DatabaseURL, cfg.Embeddings.Dimensions)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := index.NewSQLite(cfg.Search.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown search driver %q", cfg.Search.Driver)
	}
}

func initEmbedder() embeddings.Client {
	opts := []embeddings.Option{}
	if cfg.Embeddings.BaseURL != "" {
		opts = append(opts, embeddings.WithBaseURL(cfg.Embeddings.BaseURL))
	}
	if cfg.Embeddings.Model != "" {
		opts = append(opts, embeddings.WithModel(cfg.Embeddings.Model))
	}
	if cfg.Embeddings.Dimensions > 0 {
		opts = append(opts, embeddings.WithDimensions(cfg.Embeddings.Dimensions))
	}
	if cfg.Embeddings.RatePerSec > 0 {
		opts = append(opts, embeddings.WithRateLimit(cfg.Embeddings.RatePerSec))
	}
	return embeddings.NewClient(cfg.Embeddings.Key, opts...)
}

// initOrchestrator wires the full question pipeline against the given store.
func initOrchestrator(store index.Store) (*answer.Orchestrator, error) {
	detectPrompt, err := config.LoadPromptOverride(cfg.Prompts.DetectFile, detect.DefaultPrompt)
	if err != nil {
		return nil, eris.Wrap(err, "load detect prompt")
	}
	draftPrompt, err := config.LoadPromptOverride(cfg.Prompts.DraftFile, answer.DefaultDraftPrompt)
	if err != nil {
		return nil, eris.Wrap(err, "load draft prompt")
	}
	refinePrompt, err := config.LoadPromptOverride(cfg.Prompts.RefineFile, answer.DefaultRefinePrompt)
	if err != nil {
		return nil, eris.Wrap(err, "load refine prompt")
	}

	chatClient := llm.NewClient(cfg.LLM.Key, cfg.LLM.Model, llm.WithMaxTokens(cfg.LLM.MaxTokens))
	policy := cfg.Retry.Policy()

	detector := detect.NewDetector(chatClient, detectPrompt, policy, zap.L())
	retriever := retrieve.NewRetriever(initEmbedder(), store, retrieve.KPolicy{
		BaseK:      cfg.Pipeline.BaseK,
		PerCountry: cfg.Pipeline.PerCountryK,
		MaxK:       cfg.Pipeline.MaxK,
		MinSearchK: cfg.Pipeline.MinSearchK,
	}, policy, zap.L())

	return answer.NewOrchestrator(detector, retriever, chatClient, policy, answer.Options{
		DraftPrompt:        draftPrompt,
		RefinePrompt:       refinePrompt,
		MaxContextChars:    cfg.Pipeline.MaxContextChars,
		OnRefineParseError: cfg.Pipeline.OnRefineParseError,
		Debug:              cfg.Pipeline.Debug,
	}, zap.L()), nil
}

func initIngester(store index.Store) *ingest.Ingester {
	return ingest.NewIngester(initEmbedder(), store, cfg.Pipeline.IngestMaxChunkChars, cfg.Retry.Policy(), zap.L())
}
