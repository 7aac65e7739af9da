package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"feedhub/feeds"
	"feedhub/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	jobAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_refresh_job_attempts_total",
		Help: "Background refresh attempts by outcome",
	}, []string{"outcome"})

	jobItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedhub_refresh_job_items",
		Help: "Number of items in the last successful background refresh",
	})
)

// Outcome of a single background refresh attempt
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeRetry   Outcome = "retry"
	OutcomeFailure Outcome = "failure"
)

var errNoEmission = errors.New("feed closed without an emission")

// RunRecorder persists refresh attempts. db.RunLog implements it.
type RunRecorder interface {
	Record(ctx context.Context, run models.RefreshRun) (int64, error)
}

type JobConfig struct {
	Interval       time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultJobConfig() JobConfig {
	return JobConfig{
		Interval:       15 * time.Minute,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Job refreshes the integrated feed on a schedule. Each scheduled sync gets
// MaxAttempts attempts separated by exponential backoff.
type Job struct {
	feed     FeedSource
	query    func() models.FeedQuery
	recorder RunRecorder
	cfg      JobConfig
	now      func() time.Time

	mu        sync.Mutex
	listeners []Listener
}

// NewJob creates a job. query is evaluated before every attempt so config
// reloads are picked up. recorder may be nil.
func NewJob(feed FeedSource, query func() models.FeedQuery, recorder RunRecorder, cfg JobConfig) *Job {
	defaults := DefaultJobConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	return &Job{
		feed:     feed,
		query:    query,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
	}
}

// OnUpdate registers a listener for successful background refreshes
func (j *Job) OnUpdate(listener Listener) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.listeners = append(j.listeners, listener)
}

// RunOnce performs attempt number attempt (counting from 1) and classifies
// its terminal emission.
func (j *Job) RunOnce(ctx context.Context, attempt int) Outcome {
	outcome, _ := j.runAttempt(ctx, attempt)
	return outcome
}

// Sync runs attempts until one succeeds or the attempt budget is spent and
// returns the outcome of the last attempt.
func (j *Job) Sync(ctx context.Context) Outcome {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = j.cfg.InitialBackoff
	b.MaxInterval = j.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(j.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	outcome := OutcomeFailure
	err := backoff.RetryNotify(func() error {
		attempt++
		var err error
		outcome, err = j.runAttempt(ctx, attempt)
		switch outcome {
		case OutcomeSuccess:
			return nil
		case OutcomeRetry:
			return err
		default:
			return backoff.Permanent(err)
		}
	}, policy, func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"attempt": attempt,
			"wait":    wait,
			"error":   err,
		}).Warn("Background refresh failed, retrying")
	})

	// A cancelled wait leaves the last attempt marked as retryable
	if err != nil && outcome == OutcomeRetry {
		outcome = OutcomeFailure
	}
	return outcome
}

// Run syncs immediately and then on every Interval tick until ctx is done
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	log.WithField("interval", j.cfg.Interval).Info("Starting background refresh job")
	j.Sync(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping background refresh job")
			return
		case <-ticker.C:
			j.Sync(ctx)
		}
	}
}

func (j *Job) runAttempt(ctx context.Context, attempt int) (Outcome, error) {
	started := j.now()
	result, emissions := feeds.Drain(j.feed.GetIntegratedFeed(ctx, j.query()))
	if emissions == 0 {
		result = models.Failure[[]models.FeedItem](errNoEmission)
	}

	outcome := OutcomeSuccess
	if !result.OK() {
		outcome = OutcomeFailure
		if attempt < j.cfg.MaxAttempts {
			outcome = OutcomeRetry
		}
	}
	jobAttempts.WithLabelValues(string(outcome)).Inc()

	run := models.RefreshRun{
		StartedAt:  started.UnixMilli(),
		FinishedAt: j.now().UnixMilli(),
		Attempt:    attempt,
		Outcome:    string(outcome),
		ItemCount:  len(result.Value),
	}
	if result.Err != nil {
		run.Error = result.Err.Error()
	}
	j.record(ctx, run)

	if outcome == OutcomeSuccess {
		jobItems.Set(float64(len(result.Value)))
		j.publish(models.FeedUpdateEvent{Items: result.Value, Emission: emissions})
	}

	return outcome, result.Err
}

func (j *Job) record(ctx context.Context, run models.RefreshRun) {
	if j.recorder == nil {
		return
	}
	// The attempt is recorded even when ctx was cancelled during it
	if _, err := j.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		log.WithFields(log.Fields{
			"attempt": run.Attempt,
			"error":   err,
		}).Error("Failed to record refresh run")
	}
}

func (j *Job) publish(event models.FeedUpdateEvent) {
	j.mu.Lock()
	listeners := append([]Listener(nil), j.listeners...)
	j.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}
