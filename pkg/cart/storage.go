package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultKey is the slot key used when none is given.
const DefaultKey = "cart"

var (
	// ErrQuotaExceeded is returned by slots that refuse a write for size.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrUnavailable is returned by slots that cannot be reached or are disabled.
	ErrUnavailable = errors.New("storage unavailable")
)

// Slot is a key-value primitive that holds serialised carts. Get reports
// ok=false for an absent key.
type Slot interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Storage persists a cart's item list under a single slot key. Neither
// Load nor Save panics; failures come back as storage errors.
type Storage struct {
	slot Slot
	key  string
}

// NewStorage returns a Storage writing to key in slot. A nil slot is
// allowed and behaves like disabled storage.
func NewStorage(slot Slot, key string) *Storage {
	if key == "" {
		key = DefaultKey
	}
	return &Storage{slot: slot, key: key}
}

// Key returns the slot key.
func (s *Storage) Key() string { return s.key }

// Load reads the persisted items. The returned list is never nil: a
// missing key yields an empty cart, and any failure yields an empty cart
// plus a storage error.
func (s *Storage) Load(ctx context.Context) (items []Item, cerr *Error) {
	defer func() {
		if r := recover(); r != nil {
			items, cerr = []Item{}, newError(ErrorStorage, fmt.Sprintf("failed to load cart: %v", r))
		}
	}()

	if s.slot == nil {
		return []Item{}, storageError("load", ErrUnavailable)
	}
	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return []Item{}, storageError("load", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Item{}, nil
	}
	var decoded []Item
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return []Item{}, newError(ErrorStorage, "saved cart could not be read")
	}
	return normalize(decoded), nil
}

// Save writes items to the slot.
func (s *Storage) Save(ctx context.Context, items []Item) (cerr *Error) {
	defer func() {
		if r := recover(); r != nil {
			cerr = newError(ErrorStorage, fmt.Sprintf("failed to save cart: %v", r))
		}
	}()

	if s.slot == nil {
		return storageError("save", ErrUnavailable)
	}
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return newError(ErrorStorage, "cart could not be serialised")
	}
	if err := s.slot.Set(ctx, s.key, string(raw)); err != nil {
		return storageError("save", err)
	}
	return nil
}

func storageError(verb string, err error) *Error {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return newError(ErrorStorage, "failed to "+verb+" cart: storage is full")
	case errors.Is(err, ErrUnavailable):
		return newError(ErrorStorage, "failed to "+verb+" cart: storage is unavailable")
	default:
		return newError(ErrorStorage, "failed to "+verb+" cart: "+err.Error())
	}
}

// normalize drops invalid entries and merges duplicate ids, keeping the
// position of the first occurrence.
func normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || it.Quantity < 1 {
			continue
		}
		if i, ok := seen[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		seen[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
