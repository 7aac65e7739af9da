// Package refresh holds the consumers of the aggregator: an interactive
// Session that throttles user-driven refreshes and a background Job that
// refreshes on a schedule with a bounded retry budget.
package refresh

import (
	"context"
	"sync"
	"time"

	"feedhub/models"

	log "github.com/sirupsen/logrus"
)

// DefaultMinInterval is the minimum time between two unforced refreshes
const DefaultMinInterval = 60 * time.Second

// FeedSource produces integrated feed emissions
type FeedSource interface {
	GetIntegratedFeed(ctx context.Context, query models.FeedQuery) <-chan models.Result[[]models.FeedItem]
}

// Listener is called for every successful emission a Session receives
type Listener func(event models.FeedUpdateEvent)

// Session is the interactive consumer. It keeps the latest items and skips
// refreshes requested within MinInterval of the previous one, unless forced
// or the query changed.
type Session struct {
	sync.RWMutex
	feed        FeedSource
	minInterval time.Duration
	now         func() time.Time

	lastRefresh time.Time
	lastQuery   models.FeedQuery
	items       []models.FeedItem
	listeners   []Listener

	// Bumped by every refresh and Publish. Emissions of an older generation
	// are dropped so a slow refresh cannot overwrite newer items.
	generation uint64
}

type SessionOption func(*Session)

func WithMinInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.minInterval = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(feed FeedSource, opts ...SessionOption) *Session {
	s := &Session{
		feed:        feed,
		minInterval: DefaultMinInterval,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnUpdate registers a listener for new emissions
func (s *Session) OnUpdate(listener Listener) {
	s.Lock()
	defer s.Unlock()
	s.listeners = append(s.listeners, listener)
}

// ShouldRefresh reports whether an unforced refresh of query would run now
func (s *Session) ShouldRefresh(query models.FeedQuery) bool {
	s.RLock()
	defer s.RUnlock()
	return s.shouldRefreshLocked(query, false)
}

func (s *Session) shouldRefreshLocked(query models.FeedQuery, force bool) bool {
	if force || s.lastRefresh.IsZero() || query != s.lastQuery {
		return true
	}
	return s.now().Sub(s.lastRefresh) >= s.minInterval
}

// Refresh runs the aggregator for query and consumes its emissions. It
// returns false when the refresh was skipped by the throttle. A failed
// terminal emission keeps the previous items and is returned as the error.
func (s *Session) Refresh(ctx context.Context, query models.FeedQuery, force bool) (bool, error) {
	s.Lock()
	if !s.shouldRefreshLocked(query, force) {
		last := s.lastRefresh
		s.Unlock()
		log.WithField("lastRefresh", last).Debug("Skipping refresh within minimum interval")
		return false, nil
	}
	s.lastRefresh = s.now()
	s.lastQuery = query
	s.generation++
	generation := s.generation
	s.Unlock()

	var err error
	emission := 0
	for result := range s.feed.GetIntegratedFeed(ctx, query) {
		emission++
		if !result.OK() {
			err = result.Err
			continue
		}
		if !s.publish(generation, models.FeedUpdateEvent{Items: result.Value, Emission: emission}) {
			log.WithField("emission", emission).Debug("Dropping emission of a superseded refresh")
		}
	}
	return true, err
}

// Publish stores the items of event and notifies the listeners. Background
// refreshes use it to share their results with the session. It supersedes any
// refresh still in flight.
func (s *Session) Publish(event models.FeedUpdateEvent) {
	s.Lock()
	s.generation++
	generation := s.generation
	s.Unlock()

	s.publish(generation, event)
}

func (s *Session) publish(generation uint64, event models.FeedUpdateEvent) bool {
	s.Lock()
	if generation != s.generation {
		s.Unlock()
		return false
	}
	s.items = event.Items
	listeners := append([]Listener(nil), s.listeners...)
	s.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
	return true
}

func (s *Session) Items() []models.FeedItem {
	s.RLock()
	defer s.RUnlock()
	return s.items
}

func (s *Session) LastRefresh() time.Time {
	s.RLock()
	defer s.RUnlock()
	return s.lastRefresh
}
