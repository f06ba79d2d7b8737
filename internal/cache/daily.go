package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Source fetches a new daily recommendation payload from upstream.
type Source interface {
	FetchDaily(ctx context.Context) (json.RawMessage, error)
}

// Recommendation is what callers display. Payload is nil when nothing is available.
type Recommendation struct {
	Payload     json.RawMessage `json:"data"`
	Available   bool            `json:"available"`
	FromCache   bool            `json:"from_cache"`
	GeneratedAt time.Time       `json:"generated_at"`
	ValidUntil  time.Time       `json:"valid_until"`
}

// Daily applies the refresh policy on top of Get/Put: a fresh entry is served as is,
// otherwise upstream is asked for a new payload. A failed refresh leaves the stored
// entry untouched and yields no payload.
type Daily struct {
	Store  Store
	Clock  Clock
	Source Source
}

func NewDaily(store Store, source Source) *Daily {
	return &Daily{Store: store, Clock: SystemClock, Source: source}
}

func (d *Daily) Load(ctx context.Context) Recommendation {
	entry, ok, err := Get(ctx, d.Clock, d.Store)
	if err != nil {
		log.Printf("[cache] ignoring unreadable entry: %v", err)
	}
	if ok && entry.Fresh {
		remaining := FreshnessWindow - d.Clock.Now().Sub(entry.Timestamp)
		log.Printf("[cache] serving cached recommendations (valid for %.1f more hours)", remaining.Hours())
		return Recommendation{
			Payload:     entry.Payload,
			Available:   true,
			FromCache:   true,
			GeneratedAt: entry.Timestamp,
			ValidUntil:  entry.Timestamp.Add(FreshnessWindow),
		}
	}

	if d.Source == nil {
		return Recommendation{}
	}

	log.Printf("[cache] fetching new daily recommendations")
	payload, err := d.Source.FetchDaily(ctx)
	if err != nil {
		log.Printf("[cache] refresh failed, keeping existing entry: %v", err)
		return Recommendation{}
	}

	now := d.Clock.Now()
	if err := Put(ctx, d.Clock, d.Store, payload); err != nil {
		log.Printf("[cache] failed to store recommendations: %v", err)
	}
	return Recommendation{
		Payload:     payload,
		Available:   true,
		GeneratedAt: now,
		ValidUntil:  now.Add(FreshnessWindow),
	}
}
