package models

import (
	"encoding/json"
	"fmt"
)

// cachedItem is the flattened, tagged form of a FeedItem in the cache payload
type cachedItem struct {
	Type         ItemKind `json:"type"`
	Title        string   `json:"title"`
	Timestamp    int64    `json:"timestamp"`
	Link         string   `json:"link,omitempty"`
	Source       string   `json:"source,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	VideoLink    string   `json:"videoLink,omitempty"`
}

// EncodeFeedItems serializes items into the cache format, preserving order.
func EncodeFeedItems(items []FeedItem) ([]byte, error) {
	out := make([]cachedItem, 0, len(items))
	for _, item := range items {
		switch item := item.(type) {
		case NoticeItem:
			out = append(out, cachedItem{
				Type:      KindNotice,
				Title:     item.Title,
				Timestamp: item.Timestamp,
				Link:      item.Link,
				Source:    item.Source,
			})
		case VideoItem:
			out = append(out, cachedItem{
				Type:         KindVideo,
				Title:        item.Title,
				Timestamp:    item.Timestamp,
				ThumbnailURL: item.ThumbnailURL,
				VideoLink:    item.VideoLink,
			})
		default:
			return nil, fmt.Errorf("unknown feed item %T", item)
		}
	}
	return json.Marshal(out)
}

// DecodeFeedItems parses a payload written by EncodeFeedItems. Any malformed
// record fails the whole payload.
func DecodeFeedItems(data []byte) ([]FeedItem, error) {
	var raw []cachedItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	items := make([]FeedItem, 0, len(raw))
	for i, item := range raw {
		switch item.Type {
		case KindNotice:
			items = append(items, NoticeItem{
				Title:     item.Title,
				Timestamp: item.Timestamp,
				Link:      item.Link,
				Source:    item.Source,
			})
		case KindVideo:
			items = append(items, VideoItem{
				Title:        item.Title,
				Timestamp:    item.Timestamp,
				ThumbnailURL: item.ThumbnailURL,
				VideoLink:    item.VideoLink,
			})
		default:
			return nil, fmt.Errorf("%w: record %d has unknown type %q", ErrCacheCorrupt, i, item.Type)
		}
	}
	return items, nil
}

// MarshalFeedItems renders items for API responses using the same tagged form.
func MarshalFeedItems(items []FeedItem) (json.RawMessage, error) {
	if items == nil {
		items = []FeedItem{}
	}
	data, err := EncodeFeedItems(items)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
