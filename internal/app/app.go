// Package app wires the claims service from configuration.
package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/capability"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/config"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/dispatch"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/engine"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/knowledge"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/policy"
	store "github.com/yassinsws/microsoft-agent-hackathon/internal/repository"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/sample"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/service"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Store   store.Store
	Index   *knowledge.Index
	Service *service.Service
}

// New wires the service. The knowledge index is created empty; call
// LoadIndex before serving searches.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize store")
	}

	opts := llm.Options{
		Model:          cfg.Deployment,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.LLMTimeout,
	}
	if cfg.LLMMode == llm.ModeAzure {
		opts.APIKey = cfg.AzureAPIKey
		opts.Endpoint = cfg.AzureEndpoint
		opts.APIVersion = cfg.AzureAPIVersion
	} else {
		opts.APIKey = cfg.OpenAIAPIKey
		opts.Endpoint = cfg.OpenAIBaseURL
	}
	client := llm.NewLLMClient(cfg.LLMMode, opts)

	var provider knowledge.Provider = knowledge.NewHashProvider(cfg.EmbeddingDimensions)
	if emb, ok := client.(llm.Embedder); ok {
		provider = knowledge.NewLLMProvider(emb, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	}
	index := knowledge.NewIndex(knowledge.Options{
		Provider:    provider,
		Store:       db,
		PoliciesDir: cfg.PoliciesDir,
	})

	gate, err := policy.NewCapabilityPolicy(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize capability policy")
	}
	caps, err := capability.NewBuiltinRegistry(capability.Deps{
		Knowledge:    index,
		TopK:         cfg.KnowledgeTopK,
		MinRelevance: cfg.KnowledgeMinRelevance,
		Vision:       client,
		VisionModel:  cfg.Deployment,
		DataDir:      cfg.DataDir,
		ImageRoots:   []string{cfg.DataDir, cfg.UploadDir},
		Gate:         gate,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	temperature := float32(cfg.Temperature)
	registry, err := worker.Build(worker.BuildOptions{
		Client:        client,
		Toolbox:       caps,
		Model:         cfg.Deployment,
		Temperature:   &temperature,
		MaxIterations: cfg.MaxToolIterations,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	var selector dispatch.Selector
	switch cfg.DispatchMode {
	case config.DispatchPolicy:
		p, err := policy.NewDispatchPolicy(ctx)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to initialize dispatch policy")
		}
		selector = dispatch.NewPolicySelector(p)
	default:
		selector = dispatch.NewLLMSelector(client, cfg.Deployment, &temperature)
	}
	log.Info().Str("llm_mode", cfg.LLMMode).Str("dispatch_mode", cfg.DispatchMode).Strs("workers", registry.Names()).Msg("workers registered")

	eng := engine.New(registry, dispatch.New(selector, registry), engine.WithMaxSteps(cfg.MaxSteps))

	samples, err := sample.Load()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   db,
		Index:   index,
		Service: service.New(db, eng, samples, index, cfg),
	}, nil
}

// LoadIndex restores the persisted knowledge index, building it from the
// canonical policies when nothing was stored.
func (a *App) LoadIndex(ctx context.Context) error {
	loaded, err := a.Index.Load(ctx)
	if err != nil {
		return err
	}
	if loaded {
		return nil
	}
	_, err = a.Index.Rebuild(ctx, knowledge.RebuildOptions{})
	return err
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
