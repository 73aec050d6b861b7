// Package memory implements an in-memory cart slot.
package memory

import (
	"context"
	"sync"

	"cartflow/pkg/cart"
)

// Slot provides an in-memory implementation of cart.Slot. A positive quota
// caps the total bytes held, like browser storage does.
type Slot struct {
	mu     sync.RWMutex
	values map[string]string
	quota  int
}

// New creates an unbounded slot.
func New() *Slot {
	return &Slot{values: make(map[string]string)}
}

// NewWithQuota creates a slot refusing writes that would exceed quota bytes.
func NewWithQuota(quota int) *Slot {
	return &Slot{values: make(map[string]string), quota: quota}
}

// Get retrieves the value stored under key.
func (s *Slot) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Slot) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 && s.used()-len(s.values[key])+len(value) > s.quota {
		return cart.ErrQuotaExceeded
	}
	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *Slot) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Slot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func (s *Slot) used() int {
	n := 0
	for _, v := range s.values {
		n += len(v)
	}
	return n
}
