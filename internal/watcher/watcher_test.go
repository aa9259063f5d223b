package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesSamePath(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "guide.md", Operation: OpModify})
	d.Add(FileEvent{Path: "guide.md", Operation: OpModify})
	d.Add(FileEvent{Path: "guide.md", Operation: OpModify})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "guide.md", batch[0].Path)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("expected a debounced batch")
	}
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "tmp.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "tmp.md", Operation: OpDelete})
	d.Add(FileEvent{Path: "kept.md", Operation: OpCreate})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "kept.md", batch[0].Path)
	case <-time.After(time.Second):
		t.Fatal("expected a debounced batch")
	}
}

func TestDebouncer_DeleteThenCreateIsModify(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "doc.md", Operation: OpDelete})
	d.Add(FileEvent{Path: "doc.md", Operation: OpCreate})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("expected a debounced batch")
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "after-stop.md", Operation: OpCreate})
}

func TestDocsWatcher_Relevant(t *testing.T) {
	w, err := New(time.Millisecond, []string{"txt", "md", "pdf"}, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.True(t, w.relevant("docs/guide.md"))
	assert.True(t, w.relevant("docs/manual.PDF"))
	assert.False(t, w.relevant("docs/image.png"))
	assert.False(t, w.relevant("docs/.hidden.md"))
	assert.False(t, w.relevant("docs/README"))
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
}
