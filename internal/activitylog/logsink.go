package activitylog

import (
	"context"
	"log"
)

// LogSink persists batches as structured audit lines via the standard
// logger, the same `log.Printf` audit-trail idiom database-vault's
// handlers use for credential-store writes.
type LogSink struct{}

// Persist writes one audit line per record. Never fails: a logging sink
// has nothing further to propagate to the caller.
func (LogSink) Persist(_ context.Context, records []Record) error {
	for _, r := range records {
		log.Printf("activity event=%s result=%s username=%s client_id=%s peer_addr=%s topic=%s cache_hit=%t detail=%s error=%s",
			r.EventType, r.Result, r.Username, r.ClientID, r.PeerAddr, r.Topic, r.CacheHit, r.Detail, r.ErrorMessage)
	}
	return nil
}
