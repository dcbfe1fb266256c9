package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New[string](10)
	var calls int32

	compute := func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		return "allow", time.Minute, nil
	}

	ctx := context.Background()
	v1, hit1, err := c.GetOrCompute(ctx, "fp1", "user1", compute)
	if err != nil || hit1 || v1 != "allow" {
		t.Fatalf("first call: v=%v hit=%v err=%v", v1, hit1, err)
	}

	v2, hit2, err := c.GetOrCompute(ctx, "fp1", "user1", compute)
	if err != nil || !hit2 || v2 != "allow" {
		t.Fatalf("second call: v=%v hit=%v err=%v", v2, hit2, err)
	}

	if calls != 1 {
		t.Fatalf("underlying compute called %d times, want 1", calls)
	}
}

func TestSingleFlightCollapsesConcurrentCalls(t *testing.T) {
	c := New[string](10)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	compute := func(ctx context.Context) (string, time.Duration, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(started)
			<-release
		}
		return "allow", time.Minute, nil
	}

	const k = 8
	results := make(chan string, k)
	for i := 0; i < k; i++ {
		go func() {
			v, _, _ := c.GetOrCompute(context.Background(), "fp-shared", "user1", compute)
			results <- v
		}()
	}

	<-started
	close(release)

	for i := 0; i < k; i++ {
		<-results
	}

	if calls != 1 {
		t.Fatalf("compute invoked %d times under single-flight, want 1", calls)
	}
}

func TestExpiryTriggersRecompute(t *testing.T) {
	c := New[string](10)
	c.Set("fp1", "user1", "deny", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("fp1"); ok {
		t.Fatal("expected expired entry to be absent")
	}
}

func TestInvalidateUsername(t *testing.T) {
	c := New[string](10)
	c.Set("fp1", "user1", "allow", time.Minute)
	c.Set("fp2", "user1", "allow", time.Minute)
	c.Set("fp3", "user2", "allow", time.Minute)

	c.InvalidateUsername("user1")

	if _, ok := c.Get("fp1"); ok {
		t.Fatal("fp1 should have been invalidated")
	}
	if _, ok := c.Get("fp2"); ok {
		t.Fatal("fp2 should have been invalidated")
	}
	if _, ok := c.Get("fp3"); !ok {
		t.Fatal("fp3 (different username) should remain cached")
	}
}

func TestCapacityEvictsApproximateLRU(t *testing.T) {
	c := New[string](2)
	c.Set("fp1", "u1", "v1", time.Minute)
	c.Set("fp2", "u2", "v2", time.Minute)
	c.Get("fp1") // touch fp1, making fp2 the least recently used
	c.Set("fp3", "u3", "v3", time.Minute)

	if _, ok := c.Get("fp2"); ok {
		t.Fatal("expected least-recently-used entry fp2 to be evicted")
	}
	if _, ok := c.Get("fp1"); !ok {
		t.Fatal("expected recently-touched entry fp1 to remain")
	}
	if _, ok := c.Get("fp3"); !ok {
		t.Fatal("expected newly-inserted entry fp3 to remain")
	}
}

func TestGetOrComputeTimeoutAllowsLatePublication(t *testing.T) {
	c := New[string](10)
	release := make(chan struct{})

	compute := func(ctx context.Context) (string, time.Duration, error) {
		<-release
		return "allow", time.Minute, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := c.GetOrCompute(ctx, "fp-slow", "user1", compute)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	close(release)
	time.Sleep(20 * time.Millisecond)

	if v, ok := c.Get("fp-slow"); !ok || v != "allow" {
		t.Fatalf("expected late publication to populate cache, got v=%v ok=%v", v, ok)
	}
}
