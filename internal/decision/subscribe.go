package decision

import (
	"context"
	"time"

	"gatekeeperd/internal/activitylog"
	"gatekeeperd/internal/aclmatch"
)

// SubscribeFilter is one requested (filter, qos) pair.
type SubscribeFilter struct {
	Topic string
	QoS   int
}

// SubscribeRequest is the auth_on_subscribe payload (spec §6).
type SubscribeRequest struct {
	Username string
	Filters  []SubscribeFilter
}

// Subscribe evaluates a SUBSCRIBE decision (spec §4.6): per filter, the
// same admin-gate and ACL rules as Publish apply against
// allowed_subscribe_patterns. The response preserves input order and is
// not all-or-nothing — a single denied filter does not fail the others.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) Verdict {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if req.Username == "" || len(req.Filters) == 0 {
		v := Deny(ErrBadRequest)
		s.finishSubscribe(req, v, false)
		return v
	}

	filterStrings := make([]string, len(req.Filters))
	for i, f := range req.Filters {
		filterStrings[i] = f.Topic
	}
	fp := subscribeFingerprint(req.Username, filterStrings)

	v, cacheHit, err := s.cache.GetOrCompute(ctx, fp, req.Username, func(ctx context.Context) (Verdict, time.Duration, error) {
		result := s.evaluateSubscribe(ctx, req)
		return result, s.ttlFor(result), nil
	})
	if err != nil {
		v = Deny(ErrTimeout)
	}

	s.finishSubscribe(req, v, cacheHit)
	return v
}

func (s *Service) evaluateSubscribe(ctx context.Context, req SubscribeRequest) Verdict {
	ident, deny := s.lookupActive(ctx, req.Username)
	if deny != nil {
		return *deny
	}

	outcomes := make([]TopicOutcome, len(req.Filters))
	for i, f := range req.Filters {
		allowed := s.adminGate(f.Topic, ident.IsAdmin) && aclmatch.Allow(f.Topic, ident.AllowedSubscribePatterns)
		outcomes[i] = TopicOutcome{Topic: f.Topic, QoS: f.QoS, Allowed: allowed}
	}

	return PartialSubscribe(outcomes)
}

func (s *Service) finishSubscribe(req SubscribeRequest, v Verdict, cacheHit bool) {
	outcome := outcomeLabel(v)
	s.recordMetric("subscribe", string(outcome), cacheHit)

	topics := ""
	for i, f := range req.Filters {
		if i > 0 {
			topics += ","
		}
		topics += f.Topic
	}

	s.submitActivity(activitylog.Record{
		EventType: activitylog.EventSubscribe,
		Result:    outcome,
		Username:  req.Username,
		Topic:     topics,
		CacheHit:  cacheHit,
		Detail:    string(v.Err),
	})
}
