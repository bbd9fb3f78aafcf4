package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys under which the three collections are persisted.
const (
	KeyAppointments   = "appointments"
	KeyAvailabilities = "availabilities"
	KeyRecurringRules = "recurringAvailabilities"
)

// Keys lists every collection key.
var Keys = []string{KeyAppointments, KeyAvailabilities, KeyRecurringRules}

// BlobStore persists whole serialized collections by key. Get returns
// ErrNotFound when nothing was stored under key. Put overwrites
// unconditionally.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// LoadCollection reads and decodes the collection stored under key. The
// returned slice is always usable: a missing key yields an empty collection
// and a nil error, while unreadable or malformed content yields an empty
// collection together with the reason, which callers may log and ignore.
func LoadCollection[T any](ctx context.Context, s BlobStore, key string) ([]T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []T{}, nil
		}
		return []T{}, fmt.Errorf("load %s: %w", key, err)
	}
	if len(raw) == 0 {
		return []T{}, nil
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return []T{}, fmt.Errorf("load %s: %w: %v", key, ErrCorrupt, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// SaveCollection serializes items as a JSON array and stores it under key.
func SaveCollection[T any](ctx context.Context, s BlobStore, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
