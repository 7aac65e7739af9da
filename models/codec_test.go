package models_test

import (
	"errors"
	"feedhub/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedItemsRoundTrip(t *testing.T) {
	items := []models.FeedItem{
		models.VideoItem{Title: "Stream highlights", Timestamp: 1700000000500, ThumbnailURL: "https://i.ytimg.com/vi/abc/hq.jpg", VideoLink: "https://www.youtube.com/watch?v=abc"},
		models.NoticeItem{Title: "Maintenance", Timestamp: 1700000000000, Link: "https://example.com/n/1", Source: "Notices"},
		models.NoticeItem{Title: "", Timestamp: 0, Link: "", Source: ""},
		models.VideoItem{Title: "Old upload", Timestamp: 0},
	}

	data, err := models.EncodeFeedItems(items)
	require.NoError(t, err)

	decoded, err := models.DecodeFeedItems(data)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestEncodeFeedItemsTagsVariants(t *testing.T) {
	data, err := models.EncodeFeedItems([]models.FeedItem{
		models.NoticeItem{Title: "a", Timestamp: 1, Link: "l", Source: "s"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"notice","title":"a","timestamp":1,"link":"l","source":"s"}]`, string(data))
}

func TestDecodeFeedItemsCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{{{"},
		{name: "object instead of array", payload: `{"type":"notice"}`},
		{name: "unknown type", payload: `[{"type":"podcast","title":"x","timestamp":1}]`},
		{name: "missing type", payload: `[{"title":"x","timestamp":1}]`},
		{name: "wrong field type", payload: `[{"type":"video","title":"x","timestamp":"yesterday"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.DecodeFeedItems([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrCacheCorrupt))
		})
	}
}

func TestDecodeEmptyList(t *testing.T) {
	items, err := models.DecodeFeedItems([]byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestResult(t *testing.T) {
	ok := models.Success(3)
	assert.True(t, ok.OK())
	assert.Equal(t, 3, ok.Value)

	failed := models.Failure[int](models.ErrAggregation)
	assert.False(t, failed.OK())
	assert.ErrorIs(t, failed.Err, models.ErrAggregation)
}
