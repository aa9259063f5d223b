package rag

import (
	"context"
	"log/slog"

	"github.com/docqa/docqa/internal/embed"
	qaerrors "github.com/docqa/docqa/internal/errors"
	"github.com/docqa/docqa/internal/store"
)

// Retriever finds the chunks most similar to a question. The question is
// embedded with the same embedder used at ingest time.
type Retriever struct {
	embedder      embed.Embedder
	store         *store.Store
	topK          int
	minSimilarity float32
}

// NewRetriever creates a retriever over the given store.
// minSimilarity of 0 disables the score floor.
func NewRetriever(embedder embed.Embedder, st *store.Store, topK int, minSimilarity float32) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder:      embedder,
		store:         st,
		topK:          topK,
		minSimilarity: minSimilarity,
	}
}

// Retrieve returns up to topK results for the query, best first.
// An empty store is an error, not an empty result: the caller should tell
// the user to ingest documents rather than answer from nothing.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]RetrievalResult, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, qaerrors.EmptyKnowledgeBase()
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, qaerrors.Wrap(qaerrors.ErrCodeEmbeddingFailed, err)
	}

	hits, err := r.store.Query(ctx, embedding, r.topK)
	if err != nil {
		return nil, err
	}

	results := make([]RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if r.minSimilarity > 0 && h.Score < r.minSimilarity {
			continue
		}
		results = append(results, RetrievalResult{
			ChunkID:    h.ChunkID,
			SourcePath: h.SourcePath,
			Content:    h.Content,
			Score:      h.Score,
		})
	}

	slog.Debug("retrieval_complete",
		slog.Int("requested", r.topK),
		slog.Int("returned", len(results)))

	return results, nil
}
