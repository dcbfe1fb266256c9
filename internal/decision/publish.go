package decision

import (
	"context"
	"time"

	"gatekeeperd/internal/activitylog"
	"gatekeeperd/internal/aclmatch"
)

// PublishRequest is the auth_on_publish payload (spec §6).
type PublishRequest struct {
	Username string
	Topic    string
	QoS      int
	Retain   bool
}

// Publish evaluates a PUBLISH decision (spec §4.6): identity/active
// check, admin-tree gating, then ACL membership against
// allowed_publish_patterns.
func (s *Service) Publish(ctx context.Context, req PublishRequest) Verdict {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if req.Username == "" || req.Topic == "" {
		v := Deny(ErrBadRequest)
		s.finishPublish(req, v, false)
		return v
	}

	fp := publishFingerprint(req.Username, req.Topic, req.QoS)

	v, cacheHit, err := s.cache.GetOrCompute(ctx, fp, req.Username, func(ctx context.Context) (Verdict, time.Duration, error) {
		result := s.evaluatePublish(ctx, req)
		return result, s.ttlFor(result), nil
	})
	if err != nil {
		v = Deny(ErrTimeout)
	}

	s.finishPublish(req, v, cacheHit)
	return v
}

func (s *Service) evaluatePublish(ctx context.Context, req PublishRequest) Verdict {
	ident, deny := s.lookupActive(ctx, req.Username)
	if deny != nil {
		return *deny
	}

	if !s.adminGate(req.Topic, ident.IsAdmin) {
		return Deny(ErrAdminRequired)
	}

	if !aclmatch.Allow(req.Topic, ident.AllowedPublishPatterns) {
		return Deny(ErrNotAuthorized)
	}

	return Allow()
}

func (s *Service) finishPublish(req PublishRequest, v Verdict, cacheHit bool) {
	s.recordMetric("publish", string(outcomeLabel(v)), cacheHit)
	s.submitActivity(activitylog.Record{
		EventType: activitylog.EventPublish,
		Result:    outcomeLabel(v),
		Username:  req.Username,
		Topic:     req.Topic,
		CacheHit:  cacheHit,
		Detail:    string(v.Err),
	})
}
