package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSource struct {
	calls int
	value int
	err   error
}

func (c *countingSource) compute(_ context.Context) (int, error) {
	c.calls++
	return c.value, c.err
}

func TestRememberCachesComputedValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	src := &countingSource{value: 42}

	for i := 0; i < 3; i++ {
		got, err := Remember(ctx, store, "answer", time.Minute, nil, src.compute)
		if err != nil {
			t.Fatalf("Remember failed: %v", err)
		}
		if got != 42 {
			t.Fatalf("Expected 42, got %d", got)
		}
	}

	if src.calls != 1 {
		t.Errorf("Expected compute once, got %d calls", src.calls)
	}
}

func TestRememberPropagatesComputeError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	src := &countingSource{err: errors.New("database down")}

	_, err := Remember(ctx, store, "broken", time.Minute, nil, src.compute)
	if err == nil {
		t.Fatal("Expected compute error to propagate")
	}

	// Errors are never cached.
	src.err = nil
	src.value = 7
	got, err := Remember(ctx, store, "broken", time.Minute, nil, src.compute)
	if err != nil || got != 7 {
		t.Errorf("Expected recomputation after error, got %d, %v", got, err)
	}
}

func TestRememberExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	src := &countingSource{value: 1}
	if _, err := Remember(ctx, store, "k", time.Minute, nil, src.compute); err != nil {
		t.Fatal(err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := Remember(ctx, store, "k", time.Minute, nil, src.compute); err != nil {
		t.Fatal(err)
	}

	if src.calls != 2 {
		t.Errorf("Expected recompute after expiry, got %d calls", src.calls)
	}
}

func TestInvalidateTagsDropsTaggedEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	byProvince := &countingSource{value: 10}
	timeline := &countingSource{value: 20}
	diseases := &countingSource{value: 30}

	Remember(ctx, store, "cases.by_province", time.Minute, []string{"cases"}, byProvince.compute)
	Remember(ctx, store, "cases.timeline.30", time.Minute, []string{"cases"}, timeline.compute)
	Remember(ctx, store, "diseases.active", time.Minute, []string{"diseases"}, diseases.compute)

	if err := store.InvalidateTags(ctx, "cases"); err != nil {
		t.Fatalf("InvalidateTags failed: %v", err)
	}

	Remember(ctx, store, "cases.by_province", time.Minute, []string{"cases"}, byProvince.compute)
	Remember(ctx, store, "cases.timeline.30", time.Minute, []string{"cases"}, timeline.compute)
	Remember(ctx, store, "diseases.active", time.Minute, []string{"diseases"}, diseases.compute)

	if byProvince.calls != 2 {
		t.Errorf("Expected tagged entry recomputed, got %d calls", byProvince.calls)
	}
	if timeline.calls != 2 {
		t.Errorf("Expected parameterized tagged entry recomputed, got %d calls", timeline.calls)
	}
	if diseases.calls != 1 {
		t.Errorf("Expected untagged-by-cases entry kept, got %d calls", diseases.calls)
	}
}

func TestRememberSurvivesCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Set(ctx, "k", []byte("not json{"), time.Minute)

	src := &countingSource{value: 5}
	got, err := Remember(ctx, store, "k", time.Minute, nil, src.compute)
	if err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if got != 5 || src.calls != 1 {
		t.Errorf("Expected corrupt entry treated as miss, got %d with %d calls", got, src.calls)
	}
}
