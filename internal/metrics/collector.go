/*
In-memory operational metrics for gatekeeperd.

Adapted from entry-hub's singleton MetricsCollector (metrics/collector.go):
thread-safe maps of counters, a sync.Once-initialized global instance, and
zero-knowledge labeling — no username, topic, or client id ever becomes a
metric label.
*/
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Collector accumulates gatekeeperd's operational counters and gauges.
//
// Security features:
// - labels carry only endpoint/outcome/reason strings, never identities
// - memory-only, no persistence
type Collector struct {
	mu sync.RWMutex

	// DECISION METRICS
	decisionsTotal map[string]int64 // key: "endpoint:outcome:cache_hit"

	// STORE METRICS
	storeErrorsTotal map[string]int64 // key: error kind

	// LOGGER METRICS
	droppedRecordsTotal int64

	// CONNECTION METRICS
	liveSessionsGauge int64

	// HTTP METRICS
	httpRequestsTotal map[string]int64 // key: "method:route:status"

	startTime time.Time
}

var (
	collector *Collector
	once      sync.Once
)

// Initialize creates the singleton collector. Safe to call more than
// once; only the first call takes effect.
func Initialize() {
	once.Do(func() {
		collector = &Collector{
			decisionsTotal:    make(map[string]int64),
			storeErrorsTotal:  make(map[string]int64),
			httpRequestsTotal: make(map[string]int64),
			startTime:         time.Now(),
		}
	})
}

// Default returns the singleton collector, initializing it on first use.
func Default() *Collector {
	Initialize()
	return collector
}

// RecordDecision implements decision.MetricsRecorder.
func (c *Collector) RecordDecision(endpoint, outcome string, cacheHit bool) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hitLabel := "miss"
	if cacheHit {
		hitLabel = "hit"
	}
	key := endpoint + ":" + outcome + ":" + hitLabel
	c.decisionsTotal[key]++
}

// RecordStoreError increments the store-error counter for kind.
func (c *Collector) RecordStoreError(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeErrorsTotal[kind]++
}

// RecordDroppedRecords adds n to the dropped-activity-record counter.
func (c *Collector) RecordDroppedRecords(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.droppedRecordsTotal += n
}

// RecordHTTPRequest increments the request counter for a route template
// (never the raw path with embedded identifiers) and its response status.
func (c *Collector) RecordHTTPRequest(method, route string, status int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := method + ":" + route + ":" + strconv.Itoa(status)
	c.httpRequestsTotal[key]++
}

// SetLiveSessions records the current aggregate live-session gauge.
func (c *Collector) SetLiveSessions(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveSessionsGauge = n
}

// snapshot is an immutable copy of the collector's state for export.
type snapshot struct {
	decisionsTotal      map[string]int64
	storeErrorsTotal    map[string]int64
	httpRequestsTotal   map[string]int64
	droppedRecordsTotal int64
	liveSessionsGauge   int64
	uptime              time.Duration
}

func (c *Collector) snapshot() snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := snapshot{
		decisionsTotal:      make(map[string]int64, len(c.decisionsTotal)),
		storeErrorsTotal:    make(map[string]int64, len(c.storeErrorsTotal)),
		httpRequestsTotal:   make(map[string]int64, len(c.httpRequestsTotal)),
		droppedRecordsTotal: c.droppedRecordsTotal,
		liveSessionsGauge:   c.liveSessionsGauge,
		uptime:              time.Since(c.startTime),
	}
	for k, v := range c.decisionsTotal {
		s.decisionsTotal[k] = v
	}
	for k, v := range c.storeErrorsTotal {
		s.storeErrorsTotal[k] = v
	}
	for k, v := range c.httpRequestsTotal {
		s.httpRequestsTotal[k] = v
	}
	return s
}

// Reset clears all counters. Test-only.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisionsTotal = make(map[string]int64)
	c.storeErrorsTotal = make(map[string]int64)
	c.httpRequestsTotal = make(map[string]int64)
	c.droppedRecordsTotal = 0
	c.liveSessionsGauge = 0
	c.startTime = time.Now()
}
