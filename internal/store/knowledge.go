package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// On-disk layout under the store directory.
const (
	vectorFileName  = "vectors.hnsw"
	recordsFileName = "records.db"
)

// Store is the knowledge base: chunk records in SQLite plus their
// embeddings in an HNSW index, kept consistent by chunk ID.
type Store struct {
	dir     string
	vectors *VectorIndex
	records *RecordStore

	model      string
	dimensions int
}

// Options configures opening a Store.
type Options struct {
	// Dir is the store directory (e.g. ".docqa").
	Dir string

	// Model is the active embedding model name.
	Model string

	// Dimensions is the active embedder's dimension.
	Dimensions int
}

// Open opens (or creates) the knowledge store under opts.Dir.
// An existing store built with a different embedding dimension is a fatal
// error; the caller must rebuild with --force.
func Open(opts Options) (*Store, error) {
	if opts.Dimensions <= 0 {
		return nil, qaerrors.ConfigError(
			fmt.Sprintf("invalid embedding dimensions %d", opts.Dimensions), nil)
	}

	vectorPath := filepath.Join(opts.Dir, vectorFileName)

	storedDims, err := ReadStoredDimensions(vectorPath)
	if err != nil {
		return nil, qaerrors.New(qaerrors.ErrCodeStoreCorrupt,
			"vector index metadata is unreadable", err).
			WithSuggestion("run 'docqa index --force' to rebuild the store")
	}
	if storedDims != 0 && storedDims != opts.Dimensions {
		return nil, qaerrors.New(qaerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("store was built with %d-dimensional embeddings but the active model %q produces %d",
				storedDims, opts.Model, opts.Dimensions), nil).
			WithSuggestion("run 'docqa index --force' to rebuild with the current model")
	}

	vectors, err := NewVectorIndex(DefaultVectorIndexConfig(opts.Dimensions))
	if err != nil {
		return nil, qaerrors.InternalError("failed to create vector index", err)
	}

	if storedDims != 0 {
		if err := vectors.Load(vectorPath); err != nil {
			_ = vectors.Close()
			return nil, qaerrors.New(qaerrors.ErrCodeStoreCorrupt,
				"vector index is unreadable", err).
				WithSuggestion("run 'docqa index --force' to rebuild the store")
		}
	}

	records, err := NewRecordStore(filepath.Join(opts.Dir, recordsFileName))
	if err != nil {
		_ = vectors.Close()
		return nil, qaerrors.New(qaerrors.ErrCodeStoreCorrupt,
			"record database could not be opened", err).
			WithSuggestion("run 'docqa index --force' to rebuild the store")
	}

	s := &Store{
		dir:        opts.Dir,
		vectors:    vectors,
		records:    records,
		model:      opts.Model,
		dimensions: opts.Dimensions,
	}

	// A model change without a dimension change still skews similarity;
	// warn but keep serving.
	storedModel, err := records.GetState(context.Background(), StateKeyModel)
	if err == nil && storedModel != "" && storedModel != opts.Model {
		slog.Warn("store was built with a different embedding model",
			slog.String("stored", storedModel),
			slog.String("active", opts.Model))
	}

	return s, nil
}

// Upsert stores records and their embeddings. Re-upserting the same chunk
// ID replaces both the record row and the vector, so repeated ingestion of
// unchanged documents leaves the store unchanged in size.
func (s *Store) Upsert(ctx context.Context, records []KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		if len(r.Embedding) != s.dimensions {
			return qaerrors.New(qaerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("record %s has %d-dimensional embedding, store expects %d",
					r.ChunkID, len(r.Embedding), s.dimensions), nil)
		}
		ids[i] = r.ChunkID
		vectors[i] = r.Embedding
	}

	if err := s.records.SaveRecords(ctx, records); err != nil {
		return qaerrors.InternalError("failed to save records", err)
	}
	if err := s.vectors.Add(ctx, ids, vectors); err != nil {
		return qaerrors.InternalError("failed to index vectors", err)
	}

	if err := s.records.SetState(ctx, StateKeyModel, s.model); err != nil {
		return err
	}
	return s.records.SetState(ctx, StateKeyDimensions, strconv.Itoa(s.dimensions))
}

// Query returns the topK records most similar to the embedding, best first.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	matches, err := s.vectors.Search(ctx, embedding, topK)
	if err != nil {
		return nil, qaerrors.InternalError("vector search failed", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	scores := make(map[string]float32, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		scores[m.ID] = m.Score
	}

	records, err := s.records.GetRecords(ctx, ids)
	if err != nil {
		return nil, qaerrors.InternalError("failed to fetch matched records", err)
	}

	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		hits = append(hits, Hit{
			ChunkID:     r.ChunkID,
			DocumentID:  r.DocumentID,
			SourcePath:  r.SourcePath,
			Content:     r.Content,
			StartOffset: r.StartOffset,
			EndOffset:   r.EndOffset,
			Score:       scores[r.ChunkID],
		})
	}
	return hits, nil
}

// Keyword returns records matching an FTS5 keyword query. This is a debug
// surface; answers always come from vector retrieval.
func (s *Store) Keyword(ctx context.Context, query string, topK int) ([]Hit, error) {
	records, err := s.records.KeywordSearch(ctx, query, topK)
	if err != nil {
		return nil, qaerrors.InternalError("keyword search failed", err)
	}

	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		hits = append(hits, Hit{
			ChunkID:     r.ChunkID,
			DocumentID:  r.DocumentID,
			SourcePath:  r.SourcePath,
			Content:     r.Content,
			StartOffset: r.StartOffset,
			EndOffset:   r.EndOffset,
		})
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.records.Count(ctx)
}

// Model returns the embedding model recorded for this store, or the
// active model if nothing has been ingested yet.
func (s *Store) Model(ctx context.Context) string {
	if stored, err := s.records.GetState(ctx, StateKeyModel); err == nil && stored != "" {
		return stored
	}
	return s.model
}

// Dimensions returns the store's embedding dimension.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Save persists the vector index to disk. Record rows are durable as soon
// as their transaction commits; only the vectors need an explicit save.
func (s *Store) Save() error {
	if err := s.vectors.Save(filepath.Join(s.dir, vectorFileName)); err != nil {
		return qaerrors.InternalError("failed to persist vector index", err)
	}
	return nil
}

// Clear removes all stored data, in memory and on disk.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.records.Clear(ctx); err != nil {
		return qaerrors.InternalError("failed to clear records", err)
	}

	fresh, err := NewVectorIndex(DefaultVectorIndexConfig(s.dimensions))
	if err != nil {
		return qaerrors.InternalError("failed to reset vector index", err)
	}
	_ = s.vectors.Close()
	s.vectors = fresh

	vectorPath := filepath.Join(s.dir, vectorFileName)
	for _, path := range []string{vectorPath, vectorPath + ".meta"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return qaerrors.InternalError("failed to remove vector files", err)
		}
	}
	return nil
}

// Close saves the vector index and closes the record database.
func (s *Store) Close() error {
	saveErr := s.Save()
	closeErr := s.records.Close()
	_ = s.vectors.Close()

	if saveErr != nil {
		return saveErr
	}
	return closeErr
}

// RemoveAll deletes the whole store directory. Used by --force before
// opening a fresh store.
func RemoveAll(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return qaerrors.InternalError("failed to remove store directory", err)
	}
	return nil
}
