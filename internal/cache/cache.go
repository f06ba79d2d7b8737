// Package cache memoizes the daily recommendation payload in a key-value store
// with a 24 hour freshness window.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	PayloadKey   = "daily_recommendations"
	TimestampKey = "daily_recommendations_timestamp"

	FreshnessWindow = 24 * time.Hour
)

// Store is the persistent key-value capability the cache is written against.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}

// Entry is a cached payload and the moment it was written.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Fresh     bool            `json:"fresh"`
}

var ErrCorruptEntry = errors.New("cached recommendation is unreadable")

// Get reads the cached entry. Stale entries are returned with Fresh=false rather
// than dropped so they can still serve as a fallback.
func Get(ctx context.Context, clock Clock, store Store) (Entry, bool, error) {
	payload, ok, err := store.Get(ctx, PayloadKey)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read %s: %w", PayloadKey, err)
	}
	if !ok {
		return Entry{}, false, nil
	}

	rawTS, ok, err := store.Get(ctx, TimestampKey)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read %s: %w", TimestampKey, err)
	}
	if !ok {
		return Entry{}, false, nil
	}

	ts, err := time.Parse(time.RFC3339Nano, rawTS)
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: bad timestamp %q", ErrCorruptEntry, rawTS)
	}
	if !json.Valid([]byte(payload)) {
		return Entry{}, false, fmt.Errorf("%w: payload is not JSON", ErrCorruptEntry)
	}

	return Entry{
		Payload:   json.RawMessage(payload),
		Timestamp: ts,
		Fresh:     clock.Now().Sub(ts) < FreshnessWindow,
	}, true, nil
}

// Put overwrites the cached entry with payload stamped at the current time.
func Put(ctx context.Context, clock Clock, store Store, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return fmt.Errorf("%w: payload is not JSON", ErrCorruptEntry)
	}
	if err := store.Set(ctx, PayloadKey, string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", PayloadKey, err)
	}
	ts := clock.Now().UTC().Format(time.RFC3339Nano)
	if err := store.Set(ctx, TimestampKey, ts); err != nil {
		return fmt.Errorf("write %s: %w", TimestampKey, err)
	}
	return nil
}
