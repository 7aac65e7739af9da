package refresh_test

import (
	"context"
	"feedhub/models"
	"feedhub/refresh"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastJobConfig() refresh.JobConfig {
	return refresh.JobConfig{
		Interval:       time.Hour,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func staticQuery() models.FeedQuery {
	return models.FeedQuery{RSSURL: "http://feed", VideoChannelID: "@chan"}
}

func TestJobRunOnceOutcome(t *testing.T) {
	tests := []struct {
		name    string
		script  []models.Result[[]models.FeedItem]
		attempt int
		want    refresh.Outcome
	}{
		{name: "success", script: emit(models.Success(items("a"))), attempt: 1, want: refresh.OutcomeSuccess},
		{name: "cached then success", script: emit(models.Success(items("old")), models.Success(items("new"))), attempt: 3, want: refresh.OutcomeSuccess},
		{name: "failure first attempt", script: emit(fail()), attempt: 1, want: refresh.OutcomeRetry},
		{name: "failure second attempt", script: emit(fail()), attempt: 2, want: refresh.OutcomeRetry},
		{name: "failure last attempt", script: emit(fail()), attempt: 3, want: refresh.OutcomeFailure},
		{name: "cached then failure", script: emit(models.Success(items("old")), fail()), attempt: 1, want: refresh.OutcomeRetry},
		{name: "no emission", script: emit(), attempt: 3, want: refresh.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &scriptedFeed{scripts: [][]models.Result[[]models.FeedItem]{tt.script}}
			job := refresh.NewJob(feed, staticQuery, nil, fastJobConfig())

			assert.Equal(t, tt.want, job.RunOnce(context.Background(), tt.attempt))
		})
	}
}

func TestJobRecordsAttempts(t *testing.T) {
	feed := &scriptedFeed{scripts: [][]models.Result[[]models.FeedItem]{emit(models.Success(items("a", "b")))}}
	recorder := &memoryRecorder{}
	job := refresh.NewJob(feed, staticQuery, recorder, fastJobConfig())

	job.RunOnce(context.Background(), 1)

	runs := recorder.all()
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Attempt)
	assert.Equal(t, string(refresh.OutcomeSuccess), runs[0].Outcome)
	assert.Equal(t, 2, runs[0].ItemCount)
	assert.Empty(t, runs[0].Error)
	assert.LessOrEqual(t, runs[0].StartedAt, runs[0].FinishedAt)
	assert.Equal(t, []models.FeedQuery{staticQuery()}, feed.queries)
}

func TestJobSyncRetriesUntilSuccess(t *testing.T) {
	feed := &scriptedFeed{scripts: [][]models.Result[[]models.FeedItem]{
		emit(fail()),
		emit(fail()),
		emit(models.Success(items("a"))),
	}}
	recorder := &memoryRecorder{}
	job := refresh.NewJob(feed, staticQuery, recorder, fastJobConfig())

	var published []models.FeedUpdateEvent
	job.OnUpdate(func(event models.FeedUpdateEvent) { published = append(published, event) })

	assert.Equal(t, refresh.OutcomeSuccess, job.Sync(context.Background()))
	assert.Equal(t, int32(3), feed.calls.Load())

	runs := recorder.all()
	require.Len(t, runs, 3)
	assert.Equal(t, string(refresh.OutcomeRetry), runs[0].Outcome)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, string(refresh.OutcomeRetry), runs[1].Outcome)
	assert.Equal(t, string(refresh.OutcomeSuccess), runs[2].Outcome)
	assert.Equal(t, 3, runs[2].Attempt)

	require.Len(t, published, 1)
	assert.Equal(t, items("a"), published[0].Items)
}

func TestJobSyncStopsAfterBudget(t *testing.T) {
	feed := &scriptedFeed{scripts: [][]models.Result[[]models.FeedItem]{emit(fail())}}
	recorder := &memoryRecorder{}
	job := refresh.NewJob(feed, staticQuery, recorder, fastJobConfig())

	assert.Equal(t, refresh.OutcomeFailure, job.Sync(context.Background()))
	assert.Equal(t, int32(3), feed.calls.Load())

	runs := recorder.all()
	require.Len(t, runs, 3)
	assert.Equal(t, string(refresh.OutcomeFailure), runs[2].Outcome)
}

func TestJobSyncCancelled(t *testing.T) {
	feed := &scriptedFeed{scripts: [][]models.Result[[]models.FeedItem]{emit(fail())}}
	cfg := fastJobConfig()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	job := refresh.NewJob(feed, staticQuery, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan refresh.Outcome)
	go func() { done <- job.Sync(ctx) }()

	require.Eventually(t, func() bool { return feed.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case outcome := <-done:
		assert.Equal(t, refresh.OutcomeFailure, outcome)
	case <-time.After(time.Second):
		t.Fatal("sync did not stop after cancellation")
	}
	assert.Equal(t, int32(1), feed.calls.Load())
}

func TestJobRunStopsOnCancel(t *testing.T) {
	feed := &scriptedFeed{scripts: [][]models.Result[[]models.FeedItem]{emit(models.Success(items("a")))}}
	job := refresh.NewJob(feed, staticQuery, nil, fastJobConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return feed.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}
