package refresh_test

import (
	"context"
	"errors"
	"feedhub/models"
	"sync"
	"sync/atomic"
)

// scriptedFeed replays one list of emissions per call, repeating the last
// script once it runs out.
type scriptedFeed struct {
	mu      sync.Mutex
	scripts [][]models.Result[[]models.FeedItem]
	calls   atomic.Int32
	queries []models.FeedQuery
}

func (f *scriptedFeed) GetIntegratedFeed(ctx context.Context, query models.FeedQuery) <-chan models.Result[[]models.FeedItem] {
	n := int(f.calls.Add(1)) - 1

	f.mu.Lock()
	f.queries = append(f.queries, query)
	script := f.scripts[min(n, len(f.scripts)-1)]
	f.mu.Unlock()

	results := make(chan models.Result[[]models.FeedItem], len(script))
	for _, result := range script {
		results <- result
	}
	close(results)
	return results
}

func emit(results ...models.Result[[]models.FeedItem]) []models.Result[[]models.FeedItem] {
	return results
}

func items(titles ...string) []models.FeedItem {
	out := make([]models.FeedItem, 0, len(titles))
	for i, title := range titles {
		out = append(out, models.NoticeItem{Title: title, Timestamp: int64(len(titles) - i)})
	}
	return out
}

var errBoom = errors.New("boom")

func fail() models.Result[[]models.FeedItem] {
	return models.Failure[[]models.FeedItem](errBoom)
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []models.RefreshRun
}

func (r *memoryRecorder) Record(ctx context.Context, run models.RefreshRun) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return int64(len(r.runs)), nil
}

func (r *memoryRecorder) all() []models.RefreshRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RefreshRun(nil), r.runs...)
}
