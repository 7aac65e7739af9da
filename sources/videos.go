package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"feedhub/dates"
	"feedhub/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultVideoBaseURL = "https://www.googleapis.com/youtube/v3"

	// VideoPageSize is the number of most recent videos requested per channel
	VideoPageSize = 10

	watchURLPrefix = "https://www.youtube.com/watch?v="
)

type channelsResponse struct {
	Items []struct {
		Id string `json:"id"`
	} `json:"items"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Id struct {
		VideoId string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title       string               `json:"title"`
		PublishedAt string               `json:"publishedAt"`
		Thumbnails  map[string]thumbnail `json:"thumbnails"`
	} `json:"snippet"`
}

type thumbnail struct {
	URL string `json:"url"`
}

// VideoClient searches the video platform for a channel's latest uploads
type VideoClient struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	userAgent string
	handles   *HandleCache
}

func NewVideoClient(baseURL, apiKey string, handles *HandleCache, cfg HTTPConfig) *VideoClient {
	if baseURL == "" {
		baseURL = DefaultVideoBaseURL
	}
	if handles == nil {
		handles = NewHandleCache()
	}
	return &VideoClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		client:    cfg.client(),
		userAgent: cfg.userAgent(),
		handles:   handles,
	}
}

// IsHandle reports whether id is a human readable handle that must be resolved
func IsHandle(id string) bool {
	return strings.HasPrefix(id, "@")
}

// GetVideoItems returns the most recent videos of channelID, newest first.
// An empty identifier or a handle that cannot be resolved yields an empty
// list and no error.
func (c *VideoClient) GetVideoItems(ctx context.Context, channelID string) ([]models.VideoItem, error) {
	if channelID == "" {
		return []models.VideoItem{}, nil
	}

	if IsHandle(channelID) {
		resolved, ok := c.resolveHandle(ctx, channelID)
		if !ok {
			return []models.VideoItem{}, nil
		}
		channelID = resolved
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("channelId", channelID)
	query.Set("order", "date")
	query.Set("type", "video")
	query.Set("maxResults", strconv.Itoa(VideoPageSize))
	query.Set("key", c.apiKey)

	var resp searchResponse
	if err := getJSON(ctx, c.client, c.userAgent, "videos", c.baseURL+"/search?"+query.Encode(), &resp); err != nil {
		return nil, err
	}

	items := lo.FilterMap(resp.Items, func(item searchItem, _ int) (models.VideoItem, bool) {
		if item.Id.VideoId == "" {
			return models.VideoItem{}, false
		}
		return models.VideoItem{
			Title:        item.Snippet.Title,
			Timestamp:    dates.ParseISO8601(item.Snippet.PublishedAt),
			ThumbnailURL: bestThumbnail(item.Snippet.Thumbnails),
			VideoLink:    watchURLPrefix + item.Id.VideoId,
		}, true
	})

	log.WithFields(log.Fields{
		"channel": channelID,
		"videos":  len(items),
	}).Debug("Fetched videos")

	return items, nil
}

// resolveHandle maps a handle to its channel id, consulting the cache first.
// Failures are logged and reported as unresolved.
func (c *VideoClient) resolveHandle(ctx context.Context, handle string) (string, bool) {
	if id, ok := c.handles.Get(handle); ok {
		return id, true
	}

	query := url.Values{}
	query.Set("part", "id")
	query.Set("forHandle", handle)
	query.Set("key", c.apiKey)

	var resp channelsResponse
	if err := getJSON(ctx, c.client, c.userAgent, "handles", c.baseURL+"/channels?"+query.Encode(), &resp); err != nil {
		log.WithFields(log.Fields{
			"handle": handle,
			"error":  err,
		}).Warn("Could not resolve channel handle")
		return "", false
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == "" {
		log.WithField("handle", handle).Warn("Channel handle has no matching channel")
		return "", false
	}

	id := resp.Items[0].Id
	c.handles.Put(handle, id)
	return id, true
}

func bestThumbnail(thumbnails map[string]thumbnail) string {
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := thumbnails[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}
