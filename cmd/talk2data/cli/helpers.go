package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/talk2data/talk2data/internal/config"
	"github.com/talk2data/talk2data/internal/graph"
	"github.com/talk2data/talk2data/internal/llm"
	"github.com/talk2data/talk2data/internal/metadata"
	"github.com/talk2data/talk2data/internal/orchestrator"
	"github.com/talk2data/talk2data/internal/session"
	"github.com/talk2data/talk2data/internal/sqlgen"
	"github.com/talk2data/talk2data/internal/summary"
	"github.com/talk2data/talk2data/internal/viz"
	"github.com/talk2data/talk2data/internal/warehouse"
)

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// pipelineDeps is everything a command needs to run questions, plus the
// handles it must close when done.
type pipelineDeps struct {
	cfg      *config.Config
	pipeline *orchestrator.Orchestrator
	graph    *graph.Store
	executor warehouse.Executor
	logger   *slog.Logger
}

func (d *pipelineDeps) Close() {
	d.executor.Close()
	d.graph.Close()
}

// buildPipeline wires the full pipeline from the loaded configuration.
func buildPipeline(logger *slog.Logger) (*pipelineDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	graphStore, err := graph.NewStore(cfg.Graph.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}

	executor, err := warehouse.Open(warehouse.Config{
		Engine: cfg.Warehouse.Engine,
		DSN:    cfg.Warehouse.DSN,
		Projects: warehouse.ProjectPair{
			Connection: cfg.Warehouse.ConnectionProject,
			Data:       cfg.Warehouse.DataProject,
			Dataset:    cfg.Warehouse.Dataset,
		},
		MaxRows:      cfg.Warehouse.MaxRows,
		QueryTimeout: cfg.Warehouse.QueryTimeout,
		MaxOpenConns: cfg.Warehouse.MaxOpenConns,
		MaxIdleConns: cfg.Warehouse.MaxIdleConns,
	}, logger)
	if err != nil {
		graphStore.Close()
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	client, err := buildLLMClient(cfg.LLM, logger)
	if err != nil {
		executor.Close()
		graphStore.Close()
		return nil, err
	}

	pipeline := orchestrator.New(
		metadata.NewRetriever(graphStore, nil, logger),
		sqlgen.NewGenerator(client, cfg.Warehouse.DataProject, cfg.Warehouse.Dataset, logger),
		executor,
		summary.NewSummarizer(client, logger),
		viz.NewRecommender(client, logger),
		session.NewStore(),
		logger,
	)

	return &pipelineDeps{
		cfg:      cfg,
		pipeline: pipeline,
		graph:    graphStore,
		executor: executor,
		logger:   logger,
	}, nil
}

func buildLLMClient(cfg config.LLMConfig, logger *slog.Logger) (llm.Client, error) {
	var (
		inner llm.Client
		err   error
	)
	switch cfg.Backend {
	case "gateway":
		inner, err = llm.NewGatewayClient(cfg.GatewayURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		inner, err = llm.NewOpenAIClient(apiKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("build model client: %w", err)
	}
	return llm.WithRetry(inner, logger), nil
}
