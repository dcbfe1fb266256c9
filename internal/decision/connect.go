package decision

import (
	"context"
	"time"

	"gatekeeperd/internal/activitylog"
	"gatekeeperd/internal/identity/password"
	"gatekeeperd/internal/tracker"
)

// ConnectRequest is the auth_on_register payload (spec §6).
type ConnectRequest struct {
	ClientID     string
	Username     string
	Password     string
	PeerAddr     string
	CleanSession bool
	Mountpoint   string
}

// Connect evaluates a CONNECT decision (spec §4.6).
//
// Evaluation order (short-circuit): username present, identity found and
// active, client id binding honoured, password verified, quota available.
// A successful login is scheduled fire-and-forget, never on the hot path.
// A cached allow re-reads the identity and takes a quota slot; the password
// check and login recording are not repeated for it.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) Verdict {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if req.Username == "" {
		v := Deny(ErrBadCredentials)
		s.finishConnect(req, v, false)
		return v
	}

	fp := connectFingerprint(req.Username, req.ClientID, req.Password)

	v, cacheHit, err := s.cache.GetOrCompute(ctx, fp, req.Username, func(ctx context.Context) (Verdict, time.Duration, error) {
		result := s.evaluateConnect(ctx, req)
		return result, s.ttlFor(result), nil
	})
	if err != nil {
		v = Deny(ErrTimeout)
	} else if cacheHit && v.IsAllow() {
		// A cached allow skipped evaluateConnect, so the live-session quota
		// is still enforced here against the identity's current record.
		ident, deny := s.lookupActive(ctx, req.Username)
		switch {
		case deny != nil:
			v = *deny
		case s.tracker.TryAcquire(req.Username, ident.MaxConnections) == tracker.QuotaExceeded:
			v = Deny(ErrQuotaExceeded)
		}
	}

	s.finishConnect(req, v, cacheHit)
	return v
}

func (s *Service) evaluateConnect(ctx context.Context, req ConnectRequest) Verdict {
	ident, deny := s.lookupActive(ctx, req.Username)
	if deny != nil {
		return *deny
	}

	if ident.HasClientIDBinding() && ident.AllowedClientID != req.ClientID {
		return Deny(ErrClientIDMismatch)
	}

	if !password.Verify(ident.PasswordHash, req.Password) {
		return Deny(ErrBadCredentials)
	}

	if s.tracker.TryAcquire(req.Username, ident.MaxConnections) == tracker.QuotaExceeded {
		return Deny(ErrQuotaExceeded)
	}

	go s.recordSuccessfulLogin(req.Username, req.PeerAddr)

	return Allow()
}

// recordSuccessfulLogin is scheduled fire-and-forget from the hot path
// (spec §4.6 step 7); failures are logged, never surfaced to the broker.
func (s *Service) recordSuccessfulLogin(username, peerAddr string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.EndpointDeadline)
	defer cancel()
	if err := s.store.RecordSuccessfulLogin(ctx, username, peerAddr); err != nil {
		s.submitActivity(activitylog.Record{
			EventType:    activitylog.EventAuth,
			Result:       activitylog.ResultError,
			Username:     username,
			PeerAddr:     peerAddr,
			Detail:       "record_successful_login failed",
			ErrorMessage: err.Error(),
		})
	}
}

func (s *Service) finishConnect(req ConnectRequest, v Verdict, cacheHit bool) {
	s.recordMetric("connect", string(outcomeLabel(v)), cacheHit)
	s.submitActivity(activitylog.Record{
		EventType: activitylog.EventAuth,
		Result:    outcomeLabel(v),
		ClientID:  req.ClientID,
		Username:  req.Username,
		PeerAddr:  req.PeerAddr,
		CacheHit:  cacheHit,
		Detail:    string(v.Err),
	})
}
