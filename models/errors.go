package models

import "errors"

var (
	// ErrUpstream is returned by source clients on transport or decode failures.
	ErrUpstream = errors.New("upstream error")

	// ErrSourceUnavailable marks a single feed source that failed during aggregation.
	// It is masked by substituting an empty list.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAggregation is surfaced when merging or caching the integrated feed fails.
	ErrAggregation = errors.New("aggregation failure")

	// ErrLiveStatus is surfaced for any failure in the live status path.
	ErrLiveStatus = errors.New("live status failure")

	ErrCacheCorrupt = errors.New("cache corrupt")
)
