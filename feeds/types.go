// Package feeds combines the notice and video sources into one integrated,
// newest-first feed and keeps the last result in a write-through cache.
package feeds

import (
	"context"

	"feedhub/models"
)

// NoticeSource yields the entries of a syndicated notice feed
type NoticeSource interface {
	GetNoticeItems(ctx context.Context, rssURL string) ([]models.NoticeItem, error)
}

// VideoSource yields the latest videos of a channel
type VideoSource interface {
	GetVideoItems(ctx context.Context, channelID string) ([]models.VideoItem, error)
}

// LiveSource reports whether a channel is streaming
type LiveSource interface {
	GetLiveStatus(ctx context.Context, channelID string) (models.LiveStatus, error)
}

// CacheStore holds the last integrated feed. Load never surfaces errors; a
// missing or unreadable cache is reported as absent.
type CacheStore interface {
	Load(ctx context.Context) ([]models.FeedItem, bool)
	Save(ctx context.Context, items []models.FeedItem) error
}
