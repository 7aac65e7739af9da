package models

// ItemKind discriminates the FeedItem variants in the cached payload.
type ItemKind string

const (
	KindNotice ItemKind = "notice"
	KindVideo  ItemKind = "video"
)

// FeedCacheKey is the single key the integrated feed is cached under
const FeedCacheKey = "integrated_feed"

// FeedItem is either a NoticeItem or a VideoItem.
type FeedItem interface {
	Kind() ItemKind
	// Time returns the item timestamp in epoch milliseconds, 0 when unknown.
	Time() int64
	isFeedItem()
}

// NoticeItem is an entry of the syndicated notice feed
type NoticeItem struct {
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
	Link      string `json:"link"`
	Source    string `json:"source"`
}

func (NoticeItem) Kind() ItemKind { return KindNotice }
func (n NoticeItem) Time() int64  { return n.Timestamp }
func (NoticeItem) isFeedItem()    {}

// VideoItem is a video returned by the video platform search
type VideoItem struct {
	Title        string `json:"title"`
	Timestamp    int64  `json:"timestamp"`
	ThumbnailURL string `json:"thumbnailUrl"`
	VideoLink    string `json:"videoLink"`
}

func (VideoItem) Kind() ItemKind { return KindVideo }
func (v VideoItem) Time() int64  { return v.Timestamp }
func (VideoItem) isFeedItem()    {}

// LiveStatus of a streaming channel. The zero value means no channel is configured.
type LiveStatus struct {
	IsLive       bool   `json:"isLive"`
	Title        string `json:"title"`
	ViewerCount  int    `json:"viewerCount"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ChannelID    string `json:"channelId"`
}

// FeedQuery selects the sources of an integrated feed. An empty field disables that source.
type FeedQuery struct {
	RSSURL         string `json:"rssUrl"`
	VideoChannelID string `json:"videoChannelId"`
}

// Result is a single emission of the aggregator
type Result[T any] struct {
	Value T
	Err   error
}

func Success[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func Failure[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// RefreshRun is one attempt of the background sync job
type RefreshRun struct {
	Id         int64  `json:"id"`
	StartedAt  int64  `json:"startedAt"`
	FinishedAt int64  `json:"finishedAt"`
	Attempt    int    `json:"attempt"`
	Outcome    string `json:"outcome"`
	ItemCount  int    `json:"itemCount"`
	Error      string `json:"error,omitempty"`
}

// FeedUpdateEvent fired when a consumer receives a new feed emission.
// Emission counts from 1 within one refresh.
type FeedUpdateEvent struct {
	Items    []FeedItem
	Emission int
}
