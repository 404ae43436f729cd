package cmd

import (
	"context"
	"time"

	"github.com/sqlsage/sqlsage/internal/cache"
	"github.com/sqlsage/sqlsage/internal/classify"
	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/embedding"
	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/exec"
	"github.com/sqlsage/sqlsage/internal/history"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/internal/logging"
	"github.com/sqlsage/sqlsage/internal/pipeline"
	"github.com/sqlsage/sqlsage/internal/schema"
)

// app holds the wired component graph for one command invocation
type app struct {
	cfg      *config.Config
	executor exec.Executor
	registry *schema.Registry
	sqlCache *cache.SQLCache
	semantic *cache.SemanticCache
	hist     history.Sink
	pipe     *pipeline.Pipeline

	fileStore *cache.FileStore
}

// newApp builds every component from the loaded configuration
func newApp(ctx context.Context) (*app, error) {
	cfg := appConfig
	if cfg == nil {
		return nil, errors.New(errors.ErrTypeConfig, "configuration not loaded")
	}

	a := &app{cfg: cfg}

	executor, err := exec.OpenExecutor(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a.executor = executor

	schemaName := "public"
	if cfg.Database.Driver == "duckdb" {
		schemaName = "main"
	}

	provider := schema.NewDBProvider(exec.UnderlyingDB(executor), schemaName)
	a.registry = schema.NewRegistry(provider, cfg.Pipeline.SchemaTTL())

	store, err := openCacheStore(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	if fs, ok := store.(*cache.FileStore); ok {
		a.fileStore = fs
	}

	a.sqlCache = cache.NewSQLCache(store, cfg.Cache.SQLCacheTTL())
	a.semantic = cache.NewSemanticCache(
		openEmbedder(cfg),
		cfg.Cache.SemanticThreshold,
		cfg.Cache.SemanticTTL(),
	)

	generator, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.hist = history.Sink(history.NoopSink{})
	if cfg.History.Enabled {
		sink, err := history.NewSQLiteSink(cfg.History.Path)
		if err != nil {
			logging.Warnf("History disabled, could not open sink: %v", err)
		} else {
			a.hist = sink
		}
	}

	a.pipe = pipeline.New(pipeline.Options{
		Generator:       generator,
		Executor:        a.executor,
		Registry:        a.registry,
		Selector:        classify.New(cfg.LLM.SimpleModel, cfg.LLM.ComplexModel),
		SQLCache:        a.sqlCache,
		Semantic:        a.semantic,
		History:         a.hist,
		RecoveryEnabled: cfg.Pipeline.RecoveryEnabled,
	})

	return a, nil
}

// Close releases every component that holds resources
func (a *app) Close() {
	if a.fileStore != nil {
		_ = a.fileStore.Close()
	}

	if a.hist != nil {
		_ = a.hist.Close()
	}

	if a.executor != nil {
		_ = a.executor.Close()
	}
}

func openCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Backend != "file" {
		return cache.NewMemoryStore(cfg.SQLCacheTTL()), nil
	}

	cleanupFreq, err := time.ParseDuration(cfg.CleanupFreq)
	if err != nil {
		cleanupFreq = 10 * time.Minute
	}

	return cache.NewFileStore(cfg.Directory, cfg.MaxSizeMB, cfg.SQLCacheTTL(), cleanupFreq)
}

func openEmbedder(cfg *config.Config) embedding.Provider {
	if !cfg.Cache.SemanticEnabled || cfg.LLM.APIKey == "" {
		return embedding.NewDisabled()
	}

	provider, err := embedding.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel)
	if err != nil {
		logging.Warnf("Semantic cache disabled, could not build embedder: %v", err)
		return embedding.NewDisabled()
	}

	return provider
}
