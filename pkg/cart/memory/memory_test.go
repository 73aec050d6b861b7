package memory

import (
	"context"
	"errors"
	"testing"

	"cartflow/pkg/cart"
)

func TestSlot(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, ok, err := s.Get(ctx, "cart"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "cart", `[]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, "cart")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != `[]` {
		t.Fatalf("expected [], got %s", got)
	}
	if err := s.Delete(ctx, "cart"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty slot, got %d keys", s.Len())
	}
}

func TestSlotQuota(t *testing.T) {
	ctx := context.Background()
	s := NewWithQuota(10)
	if err := s.Set(ctx, "a", "12345"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := s.Set(ctx, "b", "123456"); !errors.Is(err, cart.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	// overwriting a key only counts the new value
	if err := s.Set(ctx, "a", "1234567890"); err != nil {
		t.Fatalf("overwrite a: %v", err)
	}
}

func TestSlotWithStorage(t *testing.T) {
	ctx := context.Background()
	st := cart.NewStorage(NewWithQuota(16), "cart")
	items := []cart.Item{{ID: "tee", Name: "Tee", Price: "20.00", Quantity: 1}}
	cerr := st.Save(ctx, items)
	if cerr == nil || cerr.Type != cart.ErrorStorage {
		t.Fatalf("expected storage error, got %v", cerr)
	}
	got, cerr := st.Load(ctx)
	if cerr != nil || len(got) != 0 {
		t.Fatalf("expected empty cart, got %v %v", got, cerr)
	}
}
