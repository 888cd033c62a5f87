package cache

import (
	"reflect"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCacheHitWithinTTL(t *testing.T) {
	now := date("2025-07-01")
	clock := func() time.Time { return now }
	c := New(5*time.Minute, clock)

	from, to := date("2025-07-01"), date("2025-08-01")
	stored := []string{"2025-07-04", "2025-07-05"}
	c.Set("dome-pinot", from, to, stored)

	got, ok := c.Get("dome-pinot", from, to)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if !reflect.DeepEqual(got, stored) {
		t.Fatalf("cached value changed: %v", got)
	}

	// A second read within the TTL returns the identical value.
	now = now.Add(4 * time.Minute)
	got2, ok := c.Get("dome-pinot", from, to)
	if !ok || !reflect.DeepEqual(got2, stored) {
		t.Fatalf("expected identical hit within TTL, got %v (%v)", got2, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	now := date("2025-07-01")
	c := New(5*time.Minute, func() time.Time { return now })

	from, to := date("2025-07-01"), date("2025-08-01")
	c.Set("dome-pinot", from, to, []string{"2025-07-04"})

	now = now.Add(5*time.Minute + time.Second)
	if _, ok := c.Get("dome-pinot", from, to); ok {
		t.Fatalf("expected expiry after TTL")
	}
}

func TestCacheKeyedByWindowAndAccommodation(t *testing.T) {
	c := New(5*time.Minute, func() time.Time { return date("2025-07-01") })

	from, to := date("2025-07-01"), date("2025-08-01")
	c.Set("dome-pinot", from, to, []string{"2025-07-04"})

	if _, ok := c.Get("dome-rose", from, to); ok {
		t.Fatalf("different accommodation must miss")
	}
	if _, ok := c.Get("dome-pinot", from, to.AddDate(0, 1, 0)); ok {
		t.Fatalf("different window must miss")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(5*time.Minute, func() time.Time { return date("2025-07-01") })

	from, to := date("2025-07-01"), date("2025-08-01")
	c.Set("dome-pinot", from, to, []string{"2025-07-04", "2025-07-05"})

	got, ok := c.Get("dome-pinot", from, to)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	got[0] = "mutated"

	again, _ := c.Get("dome-pinot", from, to)
	if !reflect.DeepEqual(again, []string{"2025-07-04", "2025-07-05"}) {
		t.Fatalf("mutating a result corrupted the entry: %v", again)
	}
}

func TestInvalidateAll(t *testing.T) {
	c := New(5*time.Minute, func() time.Time { return date("2025-07-01") })

	c.Set("dome-pinot", date("2025-07-01"), date("2025-08-01"), []string{"a"})
	c.Set("cottage", date("2025-07-01"), date("2025-08-01"), []string{"b"})

	c.InvalidateAll()

	if _, ok := c.Get("dome-pinot", date("2025-07-01"), date("2025-08-01")); ok {
		t.Fatalf("expected all windows invalidated")
	}
	if _, ok := c.Get("cottage", date("2025-07-01"), date("2025-08-01")); ok {
		t.Fatalf("expected all accommodations invalidated")
	}
}
