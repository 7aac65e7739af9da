package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"feedhub/models"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultLiveBaseURL = "https://api.chzzk.naver.com"

	liveStatusOpen     = "OPEN"
	liveThumbnailWidth = "480"
)

// liveDetailResponse is the envelope of the live detail endpoint.
// Content is null for channels that never went live.
type liveDetailResponse struct {
	Code    int         `json:"code"`
	Message *string     `json:"message"`
	Content *liveDetail `json:"content"`
}

type liveDetail struct {
	LiveTitle           string `json:"liveTitle"`
	Status              string `json:"status"`
	ConcurrentUserCount int    `json:"concurrentUserCount"`
	LiveImageURL        string `json:"liveImageUrl"`
}

// LiveClient queries the streaming platform for a channel's live state
type LiveClient struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

func NewLiveClient(baseURL string, cfg HTTPConfig) *LiveClient {
	if baseURL == "" {
		baseURL = DefaultLiveBaseURL
	}
	return &LiveClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    cfg.client(),
		userAgent: cfg.userAgent(),
	}
}

// GetLiveStatus returns the live state of channelID. An empty channelID
// returns the zero LiveStatus without contacting the platform.
func (c *LiveClient) GetLiveStatus(ctx context.Context, channelID string) (models.LiveStatus, error) {
	if channelID == "" {
		return models.LiveStatus{}, nil
	}

	endpoint := fmt.Sprintf("%s/service/v2/channels/%s/live-detail", c.baseURL, url.PathEscape(channelID))

	var resp liveDetailResponse
	if err := getJSON(ctx, c.client, c.userAgent, "live", endpoint, &resp); err != nil {
		return models.LiveStatus{}, err
	}
	if resp.Code != http.StatusOK {
		msg := ""
		if resp.Message != nil {
			msg = *resp.Message
		}
		return models.LiveStatus{}, fmt.Errorf("%w: live detail code %d: %s", models.ErrUpstream, resp.Code, msg)
	}

	status := models.LiveStatus{ChannelID: channelID}
	if resp.Content == nil {
		return status, nil
	}

	status.IsLive = resp.Content.Status == liveStatusOpen
	status.Title = resp.Content.LiveTitle
	status.ViewerCount = resp.Content.ConcurrentUserCount
	status.ThumbnailURL = strings.ReplaceAll(resp.Content.LiveImageURL, "{type}", liveThumbnailWidth)

	log.WithFields(log.Fields{
		"channel": channelID,
		"live":    status.IsLive,
		"viewers": status.ViewerCount,
	}).Debug("Fetched live status")

	return status, nil
}
