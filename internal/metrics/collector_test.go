package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func newTestCollector() *Collector {
	return &Collector{
		decisionsTotal:   make(map[string]int64),
		storeErrorsTotal: make(map[string]int64),
	}
}

func TestRecordDecisionAggregatesByKey(t *testing.T) {
	c := newTestCollector()
	c.RecordDecision("connect", "allow", false)
	c.RecordDecision("connect", "allow", false)
	c.RecordDecision("connect", "allow", true)

	s := c.snapshot()
	if s.decisionsTotal["connect:allow:miss"] != 2 {
		t.Fatalf("connect:allow:miss = %d, want 2", s.decisionsTotal["connect:allow:miss"])
	}
	if s.decisionsTotal["connect:allow:hit"] != 1 {
		t.Fatalf("connect:allow:hit = %d, want 1", s.decisionsTotal["connect:allow:hit"])
	}
}

func TestRecordDecisionOnNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordDecision("connect", "allow", false) // must not panic
}

func TestRecordDroppedRecordsAccumulates(t *testing.T) {
	c := newTestCollector()
	c.RecordDroppedRecords(3)
	c.RecordDroppedRecords(2)

	if got := c.snapshot().droppedRecordsTotal; got != 5 {
		t.Fatalf("droppedRecordsTotal = %d, want 5", got)
	}
}

func TestWritePrometheusIncludesRecordedCounters(t *testing.T) {
	c := newTestCollector()
	c.RecordDecision("publish", "deny", false)
	c.RecordStoreError("timeout")
	c.RecordDroppedRecords(7)

	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		"gatekeeperd_up 1",
		`gatekeeperd_decisions_total{cache_hit="miss",endpoint="publish",outcome="deny"} 1`,
		`gatekeeperd_store_errors_total{kind="timeout"} 1`,
		"gatekeeperd_activity_log_dropped_records_total 7",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\ngot:\n%s", want, out)
		}
	}
}

func TestResetClearsCounters(t *testing.T) {
	c := newTestCollector()
	c.RecordDecision("connect", "allow", false)
	c.RecordDroppedRecords(4)

	c.Reset()

	s := c.snapshot()
	if len(s.decisionsTotal) != 0 || s.droppedRecordsTotal != 0 {
		t.Fatalf("Reset() left state: %+v", s)
	}
}
