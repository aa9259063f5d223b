package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/docqa/docqa/internal/chunk"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/embed"
	qaerrors "github.com/docqa/docqa/internal/errors"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/loader"
	"github.com/docqa/docqa/internal/store"
)

// ingestLockFile guards ingestion across processes. It sits beside the
// store so separate projects never contend.
const ingestLockFile = ".ingest.lock"

// Pipeline wires loading, chunking, embedding, storage, retrieval and
// generation into one question answering surface.
type Pipeline struct {
	cfg      *config.Config
	embedder embed.Embedder
	client   llm.Client
	logger   *slog.Logger

	loader  *loader.Loader
	chunker *chunk.Chunker

	// stateMu guards state, failure and lastIndexed. It is never held
	// across embedding or generation calls.
	stateMu     sync.RWMutex
	state       State
	failure     error
	lastIndexed time.Time

	// storeMu guards the store pointer, which Initialize may swap on a
	// force rebuild.
	storeMu sync.RWMutex
	store   *store.Store

	// ingestMu serializes ingestion within the process; the flock
	// serializes it across processes.
	ingestMu sync.Mutex
}

// New creates an uninitialized pipeline. Call Initialize before Ask.
func New(cfg *config.Config, embedder embed.Embedder, client llm.Client, logger *slog.Logger) (*Pipeline, error) {
	chunker, err := chunk.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, qaerrors.ConfigError("invalid chunking settings", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		cfg:      cfg,
		embedder: embedder,
		client:   client,
		logger:   logger,
		loader:   loader.New(cfg.Docs.Directory, logger),
		chunker:  chunker,
		state:    StateUninitialized,
	}, nil
}

// shouldIngest decides whether Initialize runs ingestion: when the store
// is empty or a rebuild is forced. An already-populated store is reused
// untouched.
func shouldIngest(storeCount int, forceRebuild bool) bool {
	return storeCount == 0 || forceRebuild
}

// Initialize opens the knowledge store and ingests documents if needed.
// With forceRebuild the persisted store is cleared first. Fatal errors
// leave the pipeline in the Failed state.
func (p *Pipeline) Initialize(ctx context.Context, forceRebuild bool) (*IngestStats, error) {
	p.ingestMu.Lock()
	defer p.ingestMu.Unlock()

	p.setState(StateIndexing, nil)

	stats, err := p.initialize(ctx, forceRebuild)
	if err != nil {
		p.setState(StateFailed, err)
		return nil, err
	}

	p.setState(StateReady, nil)
	return stats, nil
}

func (p *Pipeline) initialize(ctx context.Context, forceRebuild bool) (*IngestStats, error) {
	storePath := p.cfg.Index.StorePath

	if forceRebuild {
		if err := store.RemoveAll(storePath); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(store.Options{
		Dir:        storePath,
		Model:      p.embedder.ModelName(),
		Dimensions: p.embedder.Dimensions(),
	})
	if err != nil {
		return nil, err
	}

	p.storeMu.Lock()
	if p.store != nil {
		_ = p.store.Close()
	}
	p.store = st
	p.storeMu.Unlock()

	count, err := st.Count(ctx)
	if err != nil {
		return nil, err
	}

	if !shouldIngest(count, forceRebuild) {
		p.logger.Info("reusing persisted knowledge base",
			slog.Int("chunks", count),
			slog.String("store", storePath))
		return &IngestStats{ChunksIndexed: count}, nil
	}

	return p.ingest(ctx, st)
}

// ingest runs load -> chunk -> embed -> upsert under the cross-process
// lock.
func (p *Pipeline) ingest(ctx context.Context, st *store.Store) (*IngestStats, error) {
	if err := os.MkdirAll(p.cfg.Index.StorePath, 0755); err != nil {
		return nil, qaerrors.InternalError("failed to create store directory", err)
	}

	lock := flock.New(filepath.Join(p.cfg.Index.StorePath, ingestLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, qaerrors.InternalError("failed to acquire ingest lock", err)
	}
	if !locked {
		return nil, qaerrors.New(qaerrors.ErrCodeNotReady,
			"another process is ingesting into this store", nil).
			WithSuggestion("wait for the other docqa process to finish")
	}
	defer func() { _ = lock.Unlock() }()

	start := time.Now()

	result, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	stats := &IngestStats{
		DocumentsLoaded: len(result.Documents),
		FilesSkipped:    result.FilesSkipped,
		FilesFailed:     len(result.Warnings),
	}

	for _, w := range result.Warnings {
		p.logger.Warn("file skipped during ingestion",
			slog.String("path", w.Path),
			slog.String("error", w.Err.Error()))
	}

	var chunks []chunk.Chunk
	for _, doc := range result.Documents {
		chunks = append(chunks, p.chunker.Split(doc.ID, doc.SourcePath, doc.Content)...)
	}

	if len(chunks) == 0 {
		// An existing but empty corpus is not fatal: the pipeline goes
		// Ready and Ask reports the empty knowledge base.
		p.logger.Warn("no chunks produced, knowledge base is empty",
			slog.String("docs_dir", p.cfg.Docs.Directory))
		stats.Duration = time.Since(start)
		return stats, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	p.logger.Info("embedding chunks",
		slog.Int("chunks", len(chunks)),
		slog.String("model", p.embedder.ModelName()))

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]store.KnowledgeRecord, len(chunks))
	for i, c := range chunks {
		records[i] = store.KnowledgeRecord{
			ChunkID:     c.ID,
			DocumentID:  c.DocumentID,
			SourcePath:  c.SourcePath,
			Content:     c.Content,
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			Embedding:   embeddings[i],
		}
	}

	if err := st.Upsert(ctx, records); err != nil {
		return nil, err
	}
	if err := st.Save(); err != nil {
		return nil, err
	}

	stats.ChunksIndexed = len(records)
	stats.Duration = time.Since(start)

	p.logger.Info("ingestion complete",
		slog.Int("documents", stats.DocumentsLoaded),
		slog.Int("chunks", stats.ChunksIndexed),
		slog.Int("failed_files", stats.FilesFailed),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// Ask answers a question from the knowledge base. It requires the Ready
// state and fails fast while indexing. No pipeline lock is held across
// generation, so concurrent Ask calls are safe.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	if err := p.requireReady(); err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, qaerrors.New(qaerrors.ErrCodeEmptyQuery, "question is empty", nil)
	}

	start := time.Now()

	results, err := p.Search(ctx, question)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(question, results)

	text, err := p.client.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Question: question,
		Text:     text,
		Sources:  results,
		Duration: time.Since(start),
	}

	p.logger.Info("question_answered",
		slog.Int("sources", len(results)),
		slog.Duration("duration", answer.Duration))

	return answer, nil
}

// Search runs retrieval only, without generation. Used by the search
// command and the MCP search tool.
func (p *Pipeline) Search(ctx context.Context, query string) ([]RetrievalResult, error) {
	if err := p.requireReady(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, qaerrors.New(qaerrors.ErrCodeEmptyQuery, "query is empty", nil)
	}

	p.storeMu.RLock()
	st := p.store
	p.storeMu.RUnlock()

	retriever := NewRetriever(p.embedder, st,
		p.cfg.Retrieval.TopK, float32(p.cfg.Retrieval.MinSimilarity))
	return retriever.Retrieve(ctx, query)
}

// Keyword runs FTS5 keyword search over the stored chunks. No embedding
// is involved; scores are not comparable to vector similarity and are
// reported as zero.
func (p *Pipeline) Keyword(ctx context.Context, query string) ([]RetrievalResult, error) {
	if err := p.requireReady(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, qaerrors.New(qaerrors.ErrCodeEmptyQuery, "query is empty", nil)
	}

	p.storeMu.RLock()
	st := p.store
	p.storeMu.RUnlock()

	count, err := st.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, qaerrors.EmptyKnowledgeBase()
	}

	hits, err := st.Keyword(ctx, query, p.cfg.Retrieval.TopK)
	if err != nil {
		return nil, err
	}

	results := make([]RetrievalResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, RetrievalResult{
			ChunkID:    h.ChunkID,
			SourcePath: h.SourcePath,
			Content:    h.Content,
		})
	}
	return results, nil
}

// Status returns a snapshot of the pipeline.
func (p *Pipeline) Status(ctx context.Context) Status {
	p.stateMu.RLock()
	state := p.state
	lastIndexed := p.lastIndexed
	p.stateMu.RUnlock()

	s := Status{
		State:          state.String(),
		EmbeddingModel: p.embedder.ModelName(),
		Dimensions:     p.embedder.Dimensions(),
		LLMModel:       p.client.ModelName(),
		StorePath:      p.cfg.Index.StorePath,
		DocsDirectory:  p.cfg.Docs.Directory,
		LastIndexed:    lastIndexed,
	}

	p.storeMu.RLock()
	st := p.store
	p.storeMu.RUnlock()
	if st != nil {
		if count, err := st.Count(ctx); err == nil {
			s.ChunkCount = count
		}
	}

	s.BackendAvailable = p.client.Available(ctx)

	return s
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Failure returns the error that put the pipeline into the Failed state.
func (p *Pipeline) Failure() error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.failure
}

// Close releases the store, embedder and LLM client.
func (p *Pipeline) Close() error {
	var firstErr error

	p.storeMu.Lock()
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			firstErr = err
		}
		p.store = nil
	}
	p.storeMu.Unlock()

	if err := p.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := p.client.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (p *Pipeline) requireReady() error {
	p.stateMu.RLock()
	state := p.state
	failure := p.failure
	p.stateMu.RUnlock()

	switch state {
	case StateReady:
		return nil
	case StateFailed:
		if failure != nil {
			return fmt.Errorf("pipeline failed to initialize: %w", failure)
		}
		return qaerrors.NotReady(state.String())
	default:
		return qaerrors.NotReady(state.String())
	}
}

func (p *Pipeline) setState(state State, failure error) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.state = state
	p.failure = failure
	if state == StateReady {
		p.lastIndexed = time.Now()
	}

	p.logger.Debug("pipeline_state_changed", slog.String("state", state.String()))
}
