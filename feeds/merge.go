package feeds

import (
	"cmp"
	"slices"

	"feedhub/models"

	"github.com/samber/lo"
)

// Merge concatenates notices and videos and orders them newest first. Items
// with equal timestamps keep their input order, notices before videos.
func Merge(notices []models.NoticeItem, videos []models.VideoItem) []models.FeedItem {
	merged := make([]models.FeedItem, 0, len(notices)+len(videos))
	merged = append(merged, lo.Map(notices, func(item models.NoticeItem, _ int) models.FeedItem { return item })...)
	merged = append(merged, lo.Map(videos, func(item models.VideoItem, _ int) models.FeedItem { return item })...)

	slices.SortStableFunc(merged, func(a, b models.FeedItem) int {
		return cmp.Compare(b.Time(), a.Time())
	})
	return merged
}
