/*
Activity Logger: bounded, asynchronous decision-audit sink (spec §4.5).

submit never blocks the decision path; on overflow the oldest queued
record is dropped and a counter incremented. A background drain worker
persists batches, generalized from metrics-collector's MQTT-subscriber
batch-drain-to-TimescaleDB shape (storage/timescaledb.go) to an in-process
channel instead of a network subscriber, since the Activity Logger is
in-core rather than a separate service.
*/
package activitylog

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// EventType enumerates the kinds of decisions that get logged.
type EventType string

const (
	EventAuth       EventType = "auth"
	EventPublish    EventType = "publish"
	EventSubscribe  EventType = "subscribe"
	EventDisconnect EventType = "disconnect"
	EventWakeup     EventType = "wakeup"
)

// Result enumerates the outcome recorded for an event.
type Result string

const (
	ResultAllow Result = "allow"
	ResultDeny  Result = "deny"
	ResultError Result = "error"
)

// Field length limits enforced before persistence (spec §4.5).
const (
	maxClientID = 200
	maxUsername = 100
	maxPeerAddr = 50
	maxTopic    = 500
	maxDetail   = 1000
	maxErrorMsg = 500
)

// Record is one immutable activity entry, queued by reference-free value
// (spec §3: "the logger records a username string, not a reference").
type Record struct {
	ID           string
	Timestamp    time.Time
	EventType    EventType
	Result       Result
	ClientID     string
	Username     string
	PeerAddr     string
	Topic        string
	Detail       string
	ErrorMessage string
	CacheHit     bool
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (r Record) sanitized() Record {
	r.ClientID = truncate(r.ClientID, maxClientID)
	r.Username = truncate(r.Username, maxUsername)
	r.PeerAddr = truncate(r.PeerAddr, maxPeerAddr)
	r.Topic = truncate(r.Topic, maxTopic)
	r.Detail = truncate(r.Detail, maxDetail)
	r.ErrorMessage = truncate(r.ErrorMessage, maxErrorMsg)
	return r
}

// Sink persists a batch of activity records. Implementations must not
// block indefinitely; logging failures must never propagate to the
// decision path (spec §4.5).
type Sink interface {
	Persist(ctx context.Context, records []Record) error
}

// Logger is the bounded asynchronous activity queue.
type Logger struct {
	queue     chan Record
	batchSize int
	sink      Sink

	dropped int64
	mu      sync.Mutex

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// New creates a Logger with the given bounded queue capacity and batch
// size, and starts its background drain worker.
func New(queueCapacity, batchSize int, sink Sink) *Logger {
	ctx, cancel := context.WithCancel(context.Background())
	eg, _ := errgroup.WithContext(ctx)

	l := &Logger{
		queue:     make(chan Record, queueCapacity),
		batchSize: batchSize,
		sink:      sink,
		eg:        eg,
		cancel:    cancel,
	}

	eg.Go(func() error {
		l.drain(ctx)
		return nil
	})

	return l
}

// Submit enqueues record without blocking. On overflow the oldest queued
// record is dropped and the dropped-records counter incremented.
func (l *Logger) Submit(r Record) {
	r = r.sanitized()
	select {
	case l.queue <- r:
		return
	default:
	}

	// Queue full: drop the oldest record to make room (drop-oldest policy).
	select {
	case <-l.queue:
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
	default:
	}

	select {
	case l.queue <- r:
	default:
		// Another producer raced us for the freed slot; count this one
		// dropped instead of blocking the decision path.
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
	}
}

// DroppedCount returns the number of records dropped due to overflow.
func (l *Logger) DroppedCount() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// QueueDepth returns the current number of queued, undrained records.
func (l *Logger) QueueDepth() int {
	return len(l.queue)
}

// QueueCapacity returns the configured bound on the queue.
func (l *Logger) QueueCapacity() int {
	return cap(l.queue)
}

func (l *Logger) drain(ctx context.Context) {
	batch := make([]Record, 0, l.batchSize)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := l.sink.Persist(context.Background(), batch); err != nil {
			log.Printf("activitylog: persist failed for batch of %d: %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case r := <-l.queue:
			batch = append(batch, r)
			if len(batch) >= l.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			l.drainRemaining(&batch, flush)
			return
		}
	}
}

func (l *Logger) drainRemaining(batch *[]Record, flush func()) {
	for {
		select {
		case r := <-l.queue:
			*batch = append(*batch, r)
			if len(*batch) >= l.batchSize {
				flush()
			}
		default:
			flush()
			return
		}
	}
}

// Shutdown flushes the queue up to grace, then stops the drain worker
// (spec §5: "the logger drain honours process shutdown by flushing the
// queue up to a grace deadline, then discarding").
func (l *Logger) Shutdown(grace time.Duration) {
	l.cancel()

	waited := make(chan struct{})
	go func() {
		l.eg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(grace):
		log.Printf("activitylog: shutdown grace period exceeded, discarding remaining queue")
	}
}
