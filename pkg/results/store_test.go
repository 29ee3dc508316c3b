package results

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GORMStore {
	t.Helper()
	s, err := New(&Config{SQLitePath: filepath.Join(t.TempDir(), "db", "results.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConfig_Validate(t *testing.T) {
	c := &Config{}
	c.ApplyDefaults()
	assert.Equal(t, DatabaseTypeSQLite, c.Type)
	assert.Error(t, c.Validate())

	c = &Config{Type: DatabaseTypePostgres}
	c.ApplyDefaults()
	assert.Equal(t, 10, c.MaxOpenConns)
	assert.Error(t, c.Validate())

	c = &Config{Type: "mysql"}
	assert.Error(t, c.Validate())
}

func TestStore_SaveGetUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "Front/20240819AM/a.mp4")
	assert.ErrorIs(t, err, ErrNotFound)

	c := &Classification{VideoPath: "Front/20240819AM/a.mp4", RunID: "r1", CameraType: "front", CameraName: "Front door"}
	require.NoError(t, s.Save(ctx, c))

	got, err := s.Get(ctx, c.VideoPath)
	require.NoError(t, err)
	assert.False(t, got.HasChild)
	assert.Equal(t, "r1", got.RunID)

	require.NoError(t, s.Save(ctx, &Classification{
		VideoPath: c.VideoPath, RunID: "r2", CameraType: "front", CameraName: "Front door", HasChild: true, Frames: 4,
	}))

	got, err = s.Get(ctx, c.VideoPath)
	require.NoError(t, err)
	assert.True(t, got.HasChild)
	assert.Equal(t, "r2", got.RunID)
	assert.Equal(t, 4, got.Frames)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ListAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rows := []Classification{
		{VideoPath: "Front/a.mp4", RunID: "r1", CameraType: "front", CameraName: "Front door", HasChild: true},
		{VideoPath: "Front/b.mp4", RunID: "r1", CameraType: "front", CameraName: "Front door"},
		{VideoPath: "Garden/a.mp4", RunID: "r1", CameraType: "garden", CameraName: "Garden", HasChild: true},
		{VideoPath: "Hall/a.mp4", RunID: "r0", CameraType: "default", CameraName: "Default"},
	}
	for i := range rows {
		rows[i].ProcessedAt = now
		require.NoError(t, s.Save(ctx, &rows[i]))
	}

	yes := true
	withChild, err := s.List(ctx, Filter{RunID: "r1", HasChild: &yes})
	require.NoError(t, err)
	require.Len(t, withChild, 2)
	assert.Equal(t, "Front/a.mp4", withChild[0].VideoPath)
	assert.Equal(t, "Garden/a.mp4", withChild[1].VideoPath)

	stats, err := s.Stats(ctx, Filter{RunID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, []CameraStats{
		{CameraType: "front", CameraName: "Front door", Total: 2, WithChild: 1},
		{CameraType: "garden", CameraName: "Garden", Total: 1, WithChild: 1},
	}, stats)

	require.NoError(t, s.Healthcheck(ctx))
}
