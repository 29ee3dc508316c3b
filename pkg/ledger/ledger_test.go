package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedger_MarkAndQuery(t *testing.T) {
	l := openMem(t)
	ctx := context.Background()

	done, err := l.IsDone(ctx, "download", "Front/20240819AM/a.mp4")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, l.MarkDone(ctx, Entry{Command: "download", Item: "Front/20240819AM/a.mp4", RunID: "r1"}))

	done, err = l.IsDone(ctx, "download", "Front/20240819AM/a.mp4")
	require.NoError(t, err)
	assert.True(t, done)

	// Commands are independent.
	done, err = l.IsDone(ctx, "extract", "Front/20240819AM/a.mp4")
	require.NoError(t, err)
	assert.False(t, done)

	e, err := l.Get(ctx, "download", "Front/20240819AM/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "r1", e.RunID)
	assert.False(t, e.UpdatedAt.IsZero())
}

func TestLedger_ListAndReset(t *testing.T) {
	l := openMem(t)
	ctx := context.Background()

	for _, item := range []string{"b.mp4", "a.mp4", "c.mp4"} {
		require.NoError(t, l.MarkDone(ctx, Entry{Command: "extract", Item: item, Detail: "12 frames"}))
	}
	require.NoError(t, l.MarkDone(ctx, Entry{Command: "extractx", Item: "z.mp4"}))

	entries, err := l.List(ctx, "extract")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.mp4", entries[0].Item)
	assert.Equal(t, "12 frames", entries[0].Detail)

	n, err := l.Reset(ctx, "extract")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err = l.List(ctx, "extract")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = l.List(ctx, "extractx")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.MarkDone(ctx, Entry{Command: "download", Item: "a.mp4"}))
	require.NoError(t, l.Close())

	l, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	done, err := l.IsDone(ctx, "download", "a.mp4")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestLedger_Concurrent(t *testing.T) {
	l := openMem(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.MarkDone(ctx, Entry{Command: "download", Item: fmt.Sprintf("v%02d.mp4", i)}))
		}()
	}
	wg.Wait()

	entries, err := l.List(ctx, "download")
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestLedger_Closed(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	ctx := context.Background()
	assert.ErrorIs(t, l.MarkDone(ctx, Entry{Command: "c", Item: "i"}), ErrClosed)
	_, err = l.IsDone(ctx, "c", "i")
	assert.ErrorIs(t, err, ErrClosed)
}
