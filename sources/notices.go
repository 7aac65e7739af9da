package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedhub/dates"
	"feedhub/models"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// NoticeFeed is a parsed notice document: the channel title and its entries in
// document order.
type NoticeFeed struct {
	Title   string
	Entries []models.NoticeItem
}

// NoticeClient reads the syndicated notice feed (RSS, or Atom as a fallback)
type NoticeClient struct {
	parser *gofeed.Parser
}

func NewNoticeClient(cfg HTTPConfig) *NoticeClient {
	parser := gofeed.NewParser()
	parser.Client = cfg.client()
	parser.UserAgent = cfg.userAgent()
	return &NoticeClient{parser: parser}
}

// GetNoticeItems returns the entries of the feed at rssURL. An empty rssURL
// returns an empty list without a request.
func (c *NoticeClient) GetNoticeItems(ctx context.Context, rssURL string) ([]models.NoticeItem, error) {
	if rssURL == "" {
		return []models.NoticeItem{}, nil
	}
	feed, err := c.FetchNoticeFeed(ctx, rssURL)
	if err != nil {
		return nil, err
	}
	return feed.Entries, nil
}

// FetchNoticeFeed downloads and parses the document at rssURL.
func (c *NoticeClient) FetchNoticeFeed(ctx context.Context, rssURL string) (_ *NoticeFeed, err error) {
	start := time.Now()
	defer func() {
		upstreamLatency.WithLabelValues("notices").Observe(time.Since(start).Seconds())
		upstreamRequests.WithLabelValues("notices", lo.Ternary(err == nil, "success", "error")).Inc()
	}()

	feed, err := c.parser.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: parse notice feed %s: %w", models.ErrUpstream, rssURL, err)
	}

	parsed := toNoticeFeed(feed)

	log.WithFields(log.Fields{
		"url":     rssURL,
		"title":   parsed.Title,
		"entries": len(parsed.Entries),
	}).Debug("Fetched notice feed")

	return parsed, nil
}

// ParseNoticeFeed parses a notice document that is already in memory.
func ParseNoticeFeed(document string) (*NoticeFeed, error) {
	feed, err := gofeed.NewParser().ParseString(document)
	if err != nil {
		return nil, fmt.Errorf("%w: parse notice feed: %w", models.ErrUpstream, err)
	}
	return toNoticeFeed(feed), nil
}

func toNoticeFeed(feed *gofeed.Feed) *NoticeFeed {
	title := strings.TrimSpace(feed.Title)
	parseTime := dates.ParseRFC822
	if feed.FeedType == "atom" {
		parseTime = dates.ParseISO8601
	}

	entries := lo.Map(feed.Items, func(item *gofeed.Item, _ int) models.NoticeItem {
		published := item.Published
		if strings.TrimSpace(published) == "" {
			published = item.Updated
		}
		return models.NoticeItem{
			Title:     strings.TrimSpace(item.Title),
			Timestamp: parseTime(published),
			Link:      strings.TrimSpace(item.Link),
			Source:    title,
		}
	})

	return &NoticeFeed{Title: title, Entries: entries}
}
