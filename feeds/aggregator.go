package feeds

import (
	"context"
	"fmt"
	"time"

	"feedhub/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	aggregations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_aggregations_total",
		Help: "Integrated feed aggregations by terminal outcome",
	}, []string{"outcome"})

	aggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedhub_aggregation_duration_seconds",
		Help:    "Time from fan-out to the fresh emission of an integrated feed",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	cacheEmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedhub_cache_emissions_total",
		Help: "Integrated feed requests answered first from the cache",
	})

	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_source_failures_total",
		Help: "Feed sources replaced by an empty list after failing",
	}, []string{"source"})
)

// Aggregator fans out to the feed sources and merges their items. It holds no
// per-call state and performs no throttling.
type Aggregator struct {
	notices NoticeSource
	videos  VideoSource
	live    LiveSource
	cache   CacheStore
}

func NewAggregator(notices NoticeSource, videos VideoSource, live LiveSource, cache CacheStore) *Aggregator {
	return &Aggregator{
		notices: notices,
		videos:  videos,
		live:    live,
		cache:   cache,
	}
}

// GetIntegratedFeed returns a channel that yields the cached feed, when one is
// present and non-empty, followed by exactly one fresh result. The channel is
// closed after the fresh result.
//
// The fresh result is a Failure only when merging or caching fails, or when
// ctx is cancelled. A failing source contributes no items instead.
func (a *Aggregator) GetIntegratedFeed(ctx context.Context, query models.FeedQuery) <-chan models.Result[[]models.FeedItem] {
	results := make(chan models.Result[[]models.FeedItem], 2)

	if cached, ok := a.cache.Load(ctx); ok && len(cached) > 0 {
		cacheEmissions.Inc()
		results <- models.Success(cached)
	}

	go func() {
		defer close(results)
		results <- a.refresh(ctx, query)
	}()

	return results
}

// GetLiveStatus returns a channel yielding exactly one live status result.
// Upstream failures are surfaced rather than replaced with a default.
func (a *Aggregator) GetLiveStatus(ctx context.Context, channelID string) <-chan models.Result[models.LiveStatus] {
	results := make(chan models.Result[models.LiveStatus], 1)

	if channelID == "" {
		results <- models.Success(models.LiveStatus{})
		close(results)
		return results
	}

	go func() {
		defer close(results)
		status, err := a.live.GetLiveStatus(ctx, channelID)
		if err != nil {
			log.WithFields(log.Fields{
				"channel": channelID,
				"error":   err,
			}).Warn("Live status unavailable")
			results <- models.Failure[models.LiveStatus](fmt.Errorf("%w: %w", models.ErrLiveStatus, err))
			return
		}
		results <- models.Success(status)
	}()

	return results
}

func (a *Aggregator) refresh(ctx context.Context, query models.FeedQuery) (result models.Result[[]models.FeedItem]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = models.Failure[[]models.FeedItem](fmt.Errorf("%w: %v", models.ErrAggregation, r))
		}
		aggregationDuration.Observe(time.Since(start).Seconds())
		if result.OK() {
			aggregations.WithLabelValues("success").Inc()
		} else {
			aggregations.WithLabelValues("failure").Inc()
			log.WithField("error", result.Err).Error("Integrated feed refresh failed")
		}
	}()

	var notices []models.NoticeItem
	var videos []models.VideoItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		notices, err = isolate(gctx, "notices", func(ctx context.Context) ([]models.NoticeItem, error) {
			return a.notices.GetNoticeItems(ctx, query.RSSURL)
		})
		return err
	})
	g.Go(func() (err error) {
		videos, err = isolate(gctx, "videos", func(ctx context.Context) ([]models.VideoItem, error) {
			return a.videos.GetVideoItems(ctx, query.VideoChannelID)
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return models.Failure[[]models.FeedItem](err)
	}
	if err := ctx.Err(); err != nil {
		return models.Failure[[]models.FeedItem](err)
	}

	merged := Merge(notices, videos)

	if err := a.cache.Save(ctx, merged); err != nil {
		return models.Failure[[]models.FeedItem](fmt.Errorf("%w: %w", models.ErrAggregation, err))
	}

	log.WithFields(log.Fields{
		"notices": len(notices),
		"videos":  len(videos),
		"latency": time.Since(start),
	}).Info("Refreshed integrated feed")

	return models.Success(merged)
}

// isolate runs fetch and replaces an ordinary failure, including a panic, with
// an empty list. Cancellation is returned so the join can observe it.
func isolate[T any](ctx context.Context, source string, fetch func(context.Context) ([]T, error)) (items []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = failed[T](ctx, source, fmt.Errorf("panic: %v", r))
		}
	}()

	items, err = fetch(ctx)
	if err != nil {
		return failed[T](ctx, source, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// failed decides how a source error reaches the join. Only a done ctx counts
// as cancellation: a client timeout also matches context.DeadlineExceeded but
// is an ordinary source failure while the caller is still waiting.
func failed[T any](ctx context.Context, source string, err error) ([]T, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	sourceFailures.WithLabelValues(source).Inc()
	log.WithFields(log.Fields{
		"source": source,
		"error":  fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err),
	}).Warn("Feed source failed, continuing without it")
	return []T{}, nil
}

// Drain reads results until the channel closes and returns the terminal
// result together with the number of emissions.
func Drain[T any](results <-chan models.Result[T]) (models.Result[T], int) {
	var last models.Result[T]
	count := 0
	for result := range results {
		last = result
		count++
	}
	return last, count
}
