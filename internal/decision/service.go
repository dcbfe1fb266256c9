/*
Decision Endpoints: the composition root for every broker-facing
verdict (spec §4.6). Each public method runs parse/validate, cache
probe, evaluate, cache populate, activity-log submit, in that order.

Security features:
- fail-closed: store errors and cache timeouts both resolve to a deny
  verdict, never an accidental allow (panics are not recovered here)
- the activity log and metrics recorder are fire-and-forget; a failure in
  either never blocks or denies a decision already reached
*/
package decision

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gatekeeperd/internal/activitylog"
	"gatekeeperd/internal/aclmatch"
	"gatekeeperd/internal/cache"
	"gatekeeperd/internal/identity"
	"gatekeeperd/internal/tracker"
)

// MetricsRecorder receives a fire-and-forget count per decision. Nil is a
// valid Service field (nil-check-and-no-op); a Service built without one
// simply skips metrics.
type MetricsRecorder interface {
	RecordDecision(endpoint string, outcome string, cacheHit bool)
}

// Config carries the tunables enumerated in spec §6.
type Config struct {
	AdminPrefix      string
	ConnectTTL       time.Duration
	DenyTTL          time.Duration
	EndpointDeadline time.Duration
}

// DefaultConfig mirrors spec §6's defaults.
func DefaultConfig() Config {
	return Config{
		AdminPrefix:      "admin/",
		ConnectTTL:       60 * time.Second,
		DenyTTL:          5 * time.Second,
		EndpointDeadline: 5 * time.Second,
	}
}

// Service composes the Credential Store, Topic Matcher, Connection
// Tracker, Verdict Cache, and Activity Logger into the broker-facing
// decision pipeline.
type Service struct {
	store   identity.Store
	cache   *cache.Cache[Verdict]
	tracker *tracker.Tracker
	logger  *activitylog.Logger
	metrics MetricsRecorder

	cfg Config
}

// New constructs a Service. metrics may be nil.
func New(store identity.Store, verdictCache *cache.Cache[Verdict], tr *tracker.Tracker, logger *activitylog.Logger, metrics MetricsRecorder, cfg Config) *Service {
	return &Service{
		store:   store,
		cache:   verdictCache,
		tracker: tr,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

func (s *Service) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.EndpointDeadline)
}

// InvalidateUsername evicts every cached verdict tagged with username.
// The admin surface calls this after every identity write (spec §4.4).
func (s *Service) InvalidateUsername(username string) {
	s.cache.InvalidateUsername(username)
}

// Store exposes the underlying credential store for the admin CRUD
// surface, which is a boundary to the dashboard collaborator, not part
// of the decision pipeline itself (spec §6).
func (s *Service) Store() identity.Store {
	return s.store
}

// ttlFor returns the TTL a verdict should be cached under: the configured
// CONNECT TTL for allows, and the shorter deny TTL otherwise (spec §4.4 —
// negative verdicts expire sooner to limit credential-stuffing cost).
func (s *Service) ttlFor(v Verdict) time.Duration {
	if v.IsAllow() {
		return s.cfg.ConnectTTL
	}
	return s.cfg.DenyTTL
}

func (s *Service) recordMetric(endpoint, outcome string, cacheHit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDecision(endpoint, outcome, cacheHit)
}

func (s *Service) submitActivity(r activitylog.Record) {
	if s.logger == nil {
		return
	}
	r.ID = uuid.NewString()
	r.Timestamp = time.Now()
	s.logger.Submit(r)
}

// outcomeLabel turns a Verdict into the activity-log result label.
func outcomeLabel(v Verdict) activitylog.Result {
	if v.IsAllow() {
		return activitylog.ResultAllow
	}
	return activitylog.ResultDeny
}

// lookupActive resolves username to an active identity, or the deny
// verdict that should short-circuit evaluation (spec §4.6 steps 1-3,
// shared by CONNECT, PUBLISH, and SUBSCRIBE).
func (s *Service) lookupActive(ctx context.Context, username string) (*identity.MqttIdentity, *Verdict) {
	if username == "" {
		v := Deny(ErrBadRequest)
		return nil, &v
	}

	ident, err := s.store.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			v := Deny(ErrUnknownUser)
			return nil, &v
		}
		v := s.denyForStoreError(err)
		return nil, &v
	}

	if !ident.IsActive {
		v := Deny(ErrInactive)
		return nil, &v
	}

	return ident, nil
}

// denyForStoreError maps an infrastructure failure to a fail-closed
// verdict: timeout when the deadline expired, store_unavailable otherwise.
func (s *Service) denyForStoreError(err error) Verdict {
	if errors.Is(err, context.DeadlineExceeded) {
		return Deny(ErrTimeout)
	}
	return Deny(ErrStoreUnavailable)
}

// adminGate enforces the admin-tree rule: topics under AdminPrefix
// require is_admin regardless of ACL membership (spec §4.2).
func (s *Service) adminGate(topic string, isAdmin bool) bool {
	if !aclmatch.IsAdminTopic(topic, s.cfg.AdminPrefix) {
		return true
	}
	return isAdmin
}
