package file

import (
	"context"
	"errors"
	"testing"

	"scanpos/internal/store"
)

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := s.Get(context.Background(), "inventory"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	want := []byte(`[{"barcode":"123"}]`)
	if err := s.Set(context.Background(), "inventory", want); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := s.Get(context.Background(), "inventory")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSetMultiWritesEveryKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	values := map[string][]byte{
		"inventory": []byte(`[]`),
		"bills":     []byte(`[{"id":"x"}]`),
	}
	if err := s.SetMulti(context.Background(), values); err != nil {
		t.Fatalf("setmulti failed: %v", err)
	}
	for key, want := range values {
		got, err := s.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("get %s failed: %v", key, err)
		}
		if string(got) != string(want) {
			t.Fatalf("key %s: expected %s, got %s", key, want, got)
		}
	}
}

func TestRejectsPathTraversalKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, key := range []string{"", "../etc", "a/b", "a.b", `a\b`} {
		if err := s.Set(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}
