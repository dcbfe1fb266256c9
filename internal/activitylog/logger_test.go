package activitylog

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Record
}

func (f *fakeSink) Persist(ctx context.Context, records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]Record, len(records))
	copy(cp, records)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

func TestSubmitDrainsToSink(t *testing.T) {
	sink := &fakeSink{}
	l := New(100, 10, sink)
	defer l.Shutdown(time.Second)

	l.Submit(Record{EventType: EventAuth, Result: ResultAllow, Username: "alice"})
	l.Submit(Record{EventType: EventPublish, Result: ResultDeny, Username: "bob"})

	waitUntil(t, time.Second, func() bool { return sink.total() == 2 })
}

func TestSubmitTruncatesOversizedFields(t *testing.T) {
	sink := &fakeSink{}
	l := New(100, 10, sink)
	defer l.Shutdown(time.Second)

	l.Submit(Record{
		EventType: EventPublish,
		Result:    ResultAllow,
		ClientID:  strings.Repeat("c", maxClientID+50),
		Username:  strings.Repeat("u", maxUsername+50),
		PeerAddr:  strings.Repeat("1", maxPeerAddr+50),
		Topic:     strings.Repeat("t", maxTopic+50),
		Detail:    strings.Repeat("d", maxDetail+50),
	})

	waitUntil(t, time.Second, func() bool { return sink.total() == 1 })

	r := sink.batches[0][0]
	if len(r.ClientID) != maxClientID {
		t.Fatalf("ClientID len = %d, want %d", len(r.ClientID), maxClientID)
	}
	if len(r.Username) != maxUsername {
		t.Fatalf("Username len = %d, want %d", len(r.Username), maxUsername)
	}
	if len(r.PeerAddr) != maxPeerAddr {
		t.Fatalf("PeerAddr len = %d, want %d", len(r.PeerAddr), maxPeerAddr)
	}
	if len(r.Topic) != maxTopic {
		t.Fatalf("Topic len = %d, want %d", len(r.Topic), maxTopic)
	}
	if len(r.Detail) != maxDetail {
		t.Fatalf("Detail len = %d, want %d", len(r.Detail), maxDetail)
	}
}

func TestSubmitNeverBlocksOnFullQueue(t *testing.T) {
	sink := &fakeSink{}
	// Capacity 4 against a flood of 1000 submits: producers outrun the drain
	// worker, so the queue overflows repeatedly.
	l := New(4, 100, sink)
	defer l.Shutdown(time.Second)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			l.Submit(Record{EventType: EventAuth, Result: ResultAllow, Username: "flood"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked under queue pressure")
	}
}

func TestOverflowDropsOldestAndCountsDropped(t *testing.T) {
	// Construct the queue directly, bypassing New's background drain worker,
	// so overflow behavior can be asserted deterministically.
	l := &Logger{queue: make(chan Record, 2)}

	l.Submit(Record{Username: "first"})
	l.Submit(Record{Username: "second"})
	l.Submit(Record{Username: "third"}) // queue full: "first" should be dropped

	if got := l.DroppedCount(); got != 1 {
		t.Fatalf("DroppedCount() = %d, want 1", got)
	}
	if l.QueueDepth() != 2 {
		t.Fatalf("QueueDepth() = %d, want 2", l.QueueDepth())
	}

	first := <-l.queue
	second := <-l.queue
	if first.Username != "second" || second.Username != "third" {
		t.Fatalf("expected oldest entry dropped, got %q then %q", first.Username, second.Username)
	}
}

func TestShutdownFlushesRemainingQueue(t *testing.T) {
	sink := &fakeSink{}
	l := New(100, 10, sink)

	for i := 0; i < 5; i++ {
		l.Submit(Record{EventType: EventSubscribe, Result: ResultAllow, Username: "alice"})
	}

	l.Shutdown(time.Second)

	if sink.total() != 5 {
		t.Fatalf("after shutdown, sink persisted %d records, want 5", sink.total())
	}
}

func TestQueueDepthAndCapacity(t *testing.T) {
	sink := &fakeSink{}
	l := New(8, 100, sink)
	defer l.Shutdown(time.Second)

	if l.QueueCapacity() != 8 {
		t.Fatalf("QueueCapacity() = %d, want 8", l.QueueCapacity())
	}
}
