package cli

import (
	"context"
	"fmt"
	"time"

	"paperchat/config"
	"paperchat/internal/adapter/cache"
	"paperchat/internal/adapter/chunker"
	"paperchat/internal/adapter/embedding"
	"paperchat/internal/adapter/extractor"
	"paperchat/internal/adapter/fs"
	"paperchat/internal/adapter/llm"
	"paperchat/internal/adapter/memstore"
	"paperchat/internal/adapter/provider"
	"paperchat/internal/adapter/retriever"
	"paperchat/internal/adapter/store"
	"paperchat/internal/port"
	"paperchat/internal/usecase"
)

// App wires the adapters selected by the configuration.
type App struct {
	cfg      *config.Config
	bolt     *store.BoltStore
	vectors  port.VectorStore
	papers   port.PaperStore
	embedder port.Embedder
	closers  []func() error
}

func openApp(ctx context.Context, cfg *config.Config, root string) (*App, error) {
	a := &App{cfg: cfg}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	a.embedder = embedder

	if cfg.Store.Type == "memory" {
		mem := memstore.NewMemoryStore()
		a.vectors, a.papers = mem, mem
		return a, nil
	}

	// The paper registry and the model pin always live in the local bbolt file.
	indexDir := cfg.IndexDir(root)
	if err := config.EnsureIndexDir(indexDir); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	st, err := store.NewBoltStore(config.IndexDBPath(indexDir), time.Duration(cfg.Index.OpenTimeoutSecs)*time.Second)
	if err != nil {
		return nil, err
	}
	a.bolt = st
	a.papers = st
	a.closers = append(a.closers, st.Close)

	err = st.EnsureEmbeddingModel(store.SchemaInfo{
		EmbeddingProvider: cfg.Embedding.Provider,
		EmbeddingModel:    embedder.ModelName(),
		Dimension:         embedder.Dimension(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	switch cfg.Store.Type {
	case "pgvector":
		pg, err := store.NewPgVectorStore(ctx, cfg.Store.PostgresURL, cfg.Store.Table, embedder.Dimension())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.vectors = pg
		a.closers = append(a.closers, pg.Close)
	default:
		vs, err := store.NewBoltVectorStore(st, embedder.Dimension())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.vectors = vs
	}

	return a, nil
}

// OpenIndex opens an index that already holds ingested papers. It is the
// entry point for tools outside the command tree.
func OpenIndex(ctx context.Context, cfg *config.Config, root string) (*App, error) {
	if err := checkIndex(cfg, root); err != nil {
		return nil, err
	}
	return openApp(ctx, cfg, root)
}

func (a *App) Embedder() port.Embedder {
	return a.embedder
}

func (a *App) Vectors() port.VectorStore {
	return a.vectors
}

// Retriever returns the paper-scoped semantic retriever over the index.
func (a *App) Retriever() port.Retriever {
	return retriever.NewSemanticRetriever(a.vectors, a.embedder)
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func retryPolicy(cfg *config.Config) provider.RetryPolicy {
	return provider.RetryPolicy{
		MaxRetries: cfg.Provider.MaxRetries,
		Backoff:    time.Duration(cfg.Provider.BackoffMillis) * time.Millisecond,
		Logger:     logger,
	}
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	opts := embedding.Options{
		APIKeyEnv: ec.APIKeyEnv,
		Model:     ec.Model,
		BaseURL:   ec.BaseURL,
		Dimension: ec.Dimension,
		BatchSize: ec.BatchSize,
		Timeout:   time.Duration(ec.TimeoutSecs) * time.Second,
		Retry:     retryPolicy(cfg),
	}

	var (
		embedder port.Embedder
		err      error
	)
	switch ec.Provider {
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(opts)
	case "ollama":
		embedder, err = embedding.NewOllamaEmbedder(opts)
	case "mock":
		embedder = embedding.NewMockEmbedder(ec.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if ec.CacheSize > 0 {
		c := cache.NewEmbeddingCache(ec.CacheSize, time.Duration(ec.CacheTTLSecs)*time.Second)
		embedder = cache.NewCachedEmbedder(embedder, c)
	}
	return embedder, nil
}

func newLLM(cfg *config.Config) (port.LLM, error) {
	cc := cfg.Chat
	opts := llm.Options{
		APIKeyEnv:   cc.APIKeyEnv,
		BaseURL:     cc.BaseURL,
		Temperature: cc.Temperature,
		Timeout:     time.Duration(cc.TimeoutSecs) * time.Second,
		Retry:       retryPolicy(cfg),
	}
	switch cc.Provider {
	case "openai":
		return llm.NewOpenAIClient(opts)
	case "ollama":
		return llm.NewOllamaClient(opts)
	case "mock":
		return llm.NewMockLLM("This is a mock answer."), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cc.Provider)
	}
}

func (a *App) ingestUseCase() (*usecase.IngestUseCase, error) {
	chk, err := chunker.NewTextChunker(a.cfg.Chunk.Size, a.cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}
	return usecase.NewIngestUseCase(
		extractor.NewPDFExtractor(logger),
		chk,
		a.embedder,
		a.vectors,
		a.papers,
		fs.NewWalker(a.cfg.Ingest.Includes, a.cfg.Ingest.Excludes),
		usecase.IngestOptions{
			BatchSize:       a.cfg.Embedding.BatchSize,
			ReplaceExisting: a.cfg.Index.ReplaceExisting,
			Logger:          logger,
		},
	), nil
}

func (a *App) retrieveUseCase() *usecase.RetrieveUseCase {
	return usecase.NewRetrieveUseCase(a.Retriever(), logger)
}

// chatSession builds a session for paperID after checking the paper exists.
func (a *App) chatSession(paperID, model string) (*usecase.ChatSession, error) {
	if _, err := a.papers.GetPaper(paperID); err != nil {
		return nil, err
	}
	client, err := newLLM(a.cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := client.(*llm.OpenAIClient); ok {
		a.closers = append(a.closers, func() error {
			s := c.Stats()
			logger.Debug("chat usage", "calls", s.TotalCalls, "input_chars", s.TotalInputChars, "output_chars", s.TotalOutputChars)
			return nil
		})
	}
	if model == "" {
		model = a.cfg.Chat.Model
	}
	return usecase.NewChatSession(paperID, a.retrieveUseCase(), usecase.NewAnswerUseCase(client),
		a.cfg.Retrieve.TopK, a.cfg.Retrieve.Threshold, model), nil
}
