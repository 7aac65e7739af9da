package db_test

import (
	"context"
	"database/sql"
	"feedhub/db"
	"feedhub/models"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) (*db.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedhub.db")
	require.NoError(t, db.Migrate(path))

	database, err := db.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, path
}

func TestFeedCacheEmpty(t *testing.T) {
	database, _ := openTestDB(t)
	cache := db.NewFeedCache(database)

	items, ok := cache.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, items)
}

func TestFeedCacheSaveOverwrites(t *testing.T) {
	database, _ := openTestDB(t)
	cache := db.NewFeedCache(database)
	ctx := context.Background()

	first := []models.FeedItem{
		models.NoticeItem{Title: "first", Timestamp: 10, Link: "https://example.com/1", Source: "Notices"},
	}
	require.NoError(t, cache.Save(ctx, first))

	second := []models.FeedItem{
		models.VideoItem{Title: "video", Timestamp: 30, ThumbnailURL: "https://img/1.jpg", VideoLink: "https://www.youtube.com/watch?v=1"},
		models.NoticeItem{Title: "notice", Timestamp: 20, Link: "https://example.com/2", Source: "Notices"},
	}
	require.NoError(t, cache.Save(ctx, second))

	items, ok := cache.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, second, items)
}

func TestFeedCacheEmptyListIsPresent(t *testing.T) {
	database, _ := openTestDB(t)
	cache := db.NewFeedCache(database)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, nil))

	items, ok := cache.Load(ctx)
	assert.True(t, ok)
	assert.Empty(t, items)
}

func TestFeedCacheCorruptPayloadIsAbsent(t *testing.T) {
	database, path := openTestDB(t)
	cache := db.NewFeedCache(database)
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, []models.FeedItem{models.NoticeItem{Title: "ok"}}))

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec("UPDATE kv_store SET value = ? WHERE key = ?", `[{"type":"hologram"}]`, models.FeedCacheKey)
	require.NoError(t, err)

	items, ok := cache.Load(ctx)
	assert.False(t, ok)
	assert.Nil(t, items)
}

func TestRunLogRecordAndRecent(t *testing.T) {
	database, _ := openTestDB(t)
	runs := db.NewRunLog(database)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	_, err := runs.Record(ctx, models.RefreshRun{StartedAt: now - 2000, FinishedAt: now - 1500, Attempt: 1, Outcome: "retry", Error: "boom"})
	require.NoError(t, err)
	id, err := runs.Record(ctx, models.RefreshRun{StartedAt: now - 1000, FinishedAt: now, Attempt: 2, Outcome: "success", ItemCount: 7})
	require.NoError(t, err)

	recent, err := runs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, id, recent[0].Id)
	assert.Equal(t, "success", recent[0].Outcome)
	assert.Equal(t, 7, recent[0].ItemCount)
	assert.Empty(t, recent[0].Error)
	assert.Equal(t, "retry", recent[1].Outcome)
	assert.Equal(t, "boom", recent[1].Error)

	limited, err := runs.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTidyRemovesOldRuns(t *testing.T) {
	database, path := openTestDB(t)
	runs := db.NewRunLog(database)
	ctx := context.Background()

	old := time.Now().Add(-60 * 24 * time.Hour).UnixMilli()
	fresh := time.Now().UnixMilli()
	_, err := runs.Record(ctx, models.RefreshRun{StartedAt: old, FinishedAt: old, Attempt: 1, Outcome: "success"})
	require.NoError(t, err)
	_, err = runs.Record(ctx, models.RefreshRun{StartedAt: fresh, FinishedAt: fresh, Attempt: 1, Outcome: "success"})
	require.NoError(t, err)

	removed, err := db.Tidy(path, db.DefaultRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	recent, err := runs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, fresh, recent[0].StartedAt)
}

func TestRollback(t *testing.T) {
	_, path := openTestDB(t)
	require.NoError(t, db.Rollback(path))
	require.NoError(t, db.Migrate(path))
}
