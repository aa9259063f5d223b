package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecordStore(t *testing.T) *RecordStore {
	t.Helper()
	rs, err := NewRecordStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func sampleRecords() []KnowledgeRecord {
	return []KnowledgeRecord{
		{
			ChunkID:     "chunk_1",
			DocumentID:  "doc_1",
			SourcePath:  "guide.md",
			Content:     "To reset your password open the settings page",
			StartOffset: 0,
			EndOffset:   45,
		},
		{
			ChunkID:     "chunk_2",
			DocumentID:  "doc_1",
			SourcePath:  "guide.md",
			Content:     "Invoices are generated monthly under billing",
			StartOffset: 30,
			EndOffset:   74,
		},
	}
}

func TestRecordStore_SaveAndGet(t *testing.T) {
	rs := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveRecords(ctx, sampleRecords()))

	got, err := rs.GetRecords(ctx, []string{"chunk_2", "chunk_1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Requested order is preserved
	assert.Equal(t, "chunk_2", got[0].ChunkID)
	assert.Equal(t, "chunk_1", got[1].ChunkID)
	assert.Equal(t, "guide.md", got[0].SourcePath)
}

func TestRecordStore_GetMissingIDsSkipped(t *testing.T) {
	rs := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveRecords(ctx, sampleRecords()))

	got, err := rs.GetRecords(ctx, []string{"chunk_1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "chunk_1", got[0].ChunkID)
}

func TestRecordStore_UpsertIdempotent(t *testing.T) {
	rs := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveRecords(ctx, sampleRecords()))
	require.NoError(t, rs.SaveRecords(ctx, sampleRecords()))

	count, err := rs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordStore_KeywordSearch(t *testing.T) {
	rs := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveRecords(ctx, sampleRecords()))

	got, err := rs.KeywordSearch(ctx, "password", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "chunk_1", got[0].ChunkID)

	// Quoting keeps FTS5 operators inert
	_, err = rs.KeywordSearch(ctx, `AND OR "broken`, 5)
	assert.NoError(t, err)
}

func TestRecordStore_KeywordSearchEmptyQuery(t *testing.T) {
	rs := newTestRecordStore(t)

	got, err := rs.KeywordSearch(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordStore_State(t *testing.T) {
	rs := newTestRecordStore(t)
	ctx := context.Background()

	val, err := rs.GetState(ctx, StateKeyModel)
	require.NoError(t, err)
	assert.Empty(t, val, "unset state reads as empty")

	require.NoError(t, rs.SetState(ctx, StateKeyModel, "all-minilm"))
	require.NoError(t, rs.SetState(ctx, StateKeyModel, "nomic-embed-text"))

	val, err = rs.GetState(ctx, StateKeyModel)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", val)
}

func TestRecordStore_Clear(t *testing.T) {
	rs := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveRecords(ctx, sampleRecords()))
	require.NoError(t, rs.SetState(ctx, StateKeyModel, "all-minilm"))
	require.NoError(t, rs.Clear(ctx))

	count, err := rs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	val, err := rs.GetState(ctx, StateKeyModel)
	require.NoError(t, err)
	assert.Empty(t, val)

	got, err := rs.KeywordSearch(ctx, "password", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordStore_ClosedRejectsCalls(t *testing.T) {
	rs, err := NewRecordStore("")
	require.NoError(t, err)
	require.NoError(t, rs.Close())

	_, err = rs.Count(context.Background())
	assert.Error(t, err)
}
