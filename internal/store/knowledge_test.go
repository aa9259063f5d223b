package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

func openTestStore(t *testing.T, dir string, dims int) *Store {
	t.Helper()
	s, err := Open(Options{Dir: dir, Model: "all-minilm", Dimensions: dims})
	require.NoError(t, err)
	return s
}

func knowledgeRecords() []KnowledgeRecord {
	return []KnowledgeRecord{
		{
			ChunkID:    "chunk_1",
			DocumentID: "doc_1",
			SourcePath: "faq.md",
			Content:    "Password resets are under account settings",
			EndOffset:  42,
			Embedding:  []float32{1, 0, 0},
		},
		{
			ChunkID:     "chunk_2",
			DocumentID:  "doc_1",
			SourcePath:  "faq.md",
			Content:     "Exports run nightly and land in the reports tab",
			StartOffset: 40,
			EndOffset:   87,
			Embedding:   []float32{0, 1, 0},
		},
	}
}

func TestStore_UpsertAndQuery(t *testing.T) {
	s := openTestStore(t, t.TempDir(), 3)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))

	hits, err := s.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "chunk_1", hits[0].ChunkID)
	assert.Equal(t, "faq.md", hits[0].SourcePath)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestStore_UpsertIdempotent(t *testing.T) {
	s := openTestStore(t, t.TempDir(), 3)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))
	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_UpsertDimensionMismatch(t *testing.T) {
	s := openTestStore(t, t.TempDir(), 3)
	defer func() { _ = s.Close() }()

	err := s.Upsert(context.Background(), []KnowledgeRecord{{
		ChunkID:   "bad",
		Embedding: []float32{1, 0},
	}})
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeDimensionMismatch, qaerrors.GetCode(err))
}

func TestStore_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir, 3)
	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))
	require.NoError(t, s.Close())

	reopened := openTestStore(t, dir, 3)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := reopened.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chunk_2", hits[0].ChunkID)

	assert.Equal(t, "all-minilm", reopened.Model(ctx))
}

func TestStore_OpenDimensionMismatchFatal(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir, 3)
	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))
	require.NoError(t, s.Close())

	_, err := Open(Options{Dir: dir, Model: "other-model", Dimensions: 5})
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeDimensionMismatch, qaerrors.GetCode(err))
	assert.True(t, qaerrors.IsFatal(err))
}

func TestStore_Clear(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir, 3)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))
	require.NoError(t, s.Clear(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	hits, err := s.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_Keyword(t *testing.T) {
	s := openTestStore(t, t.TempDir(), 3)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, knowledgeRecords()))

	hits, err := s.Keyword(ctx, "reports", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chunk_2", hits[0].ChunkID)
}

func TestStore_QueryEmptyStore(t *testing.T) {
	s := openTestStore(t, t.TempDir(), 3)
	defer func() { _ = s.Close() }()

	hits, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
