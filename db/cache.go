package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedhub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// FeedCache persists the last integrated feed under a single key of the
// kv_store table. Only the aggregator writes it; last writer wins.
type FeedCache struct {
	db  *sql.DB
	key string
}

func NewFeedCache(d *DB) *FeedCache {
	return &FeedCache{db: d.db, key: models.FeedCacheKey}
}

// Load returns the cached feed. Missing rows, read errors and corrupt
// payloads are all reported as absent.
func (c *FeedCache) Load(ctx context.Context) ([]models.FeedItem, bool) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("value").From("kv_store").Where(sb.Equal("key", c.key))
	query, args := sb.Build()

	var value string
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		log.WithFields(log.Fields{
			"key":   c.key,
			"error": err,
		}).Warn("Could not read feed cache")
		return nil, false
	}

	items, err := models.DecodeFeedItems([]byte(value))
	if err != nil {
		log.WithFields(log.Fields{
			"key":   c.key,
			"error": err,
		}).Warn("Ignoring corrupt feed cache")
		return nil, false
	}

	return items, true
}

// Save overwrites the cached feed with items.
func (c *FeedCache) Save(ctx context.Context, items []models.FeedItem) error {
	if items == nil {
		items = []models.FeedItem{}
	}
	payload, err := models.EncodeFeedItems(items)
	if err != nil {
		return fmt.Errorf("encode feed cache: %w", err)
	}
	return c.put(ctx, string(payload))
}

func (c *FeedCache) put(ctx context.Context, value string) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("kv_store").Cols("key", "value", "updated_at").Values(c.key, value, time.Now().Unix())
	ib.SQL("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at")
	query, args := ib.Build()

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write feed cache: %w", err)
	}

	log.WithFields(log.Fields{
		"key":   c.key,
		"bytes": len(value),
	}).Debug("Wrote feed cache")
	return nil
}
