/*
Circuit breaker decorator for the identity store.

Wraps a Store so that once PostgreSQL is known to be down, decision
endpoints fail closed immediately with store_unavailable instead of
waiting out a full connection timeout on every request. Not grounded on
a teacher file directly (the R.A.M.-U.S.B. family never circuit-breaks
its own storage calls); pulled from the go-resiliency stack used
elsewhere in the retrieved pack for exactly this failure-isolation
problem.
*/
package breaker

import (
	"context"
	"fmt"

	"gatekeeperd/internal/identity"
	"gatekeeperd/internal/identity/postgres"

	"github.com/eapache/go-resiliency/breaker"
)

// Store decorates an identity.Store with a circuit breaker around every
// call that reaches the database.
type Store struct {
	inner identity.Store
	cb    *breaker.Breaker
}

// New wraps inner with a breaker that trips after errorThreshold
// consecutive failures and stays open for the breaker package's default
// cooldown, half-opening to probe recovery.
func New(inner identity.Store, errorThreshold, successThreshold int) *Store {
	return &Store{
		inner: inner,
		cb:    breaker.New(errorThreshold, successThreshold, 0),
	}
}

// ErrStoreUnavailable is returned when the breaker is open.
var ErrStoreUnavailable = fmt.Errorf("identity store: circuit open")

func (s *Store) Lookup(ctx context.Context, username string) (*identity.MqttIdentity, error) {
	var result *identity.MqttIdentity
	var callErr error
	err := s.cb.Run(func() error {
		result, callErr = s.inner.Lookup(ctx, username)
		if callErr != nil && !postgres.IsRetryable(callErr) {
			return nil
		}
		return callErr
	})
	if err == breaker.ErrBreakerOpen {
		return nil, ErrStoreUnavailable
	}
	return result, callErr
}

func (s *Store) RecordSuccessfulLogin(ctx context.Context, username, peerAddr string) error {
	var callErr error
	err := s.cb.Run(func() error {
		callErr = s.inner.RecordSuccessfulLogin(ctx, username, peerAddr)
		if callErr != nil && !postgres.IsRetryable(callErr) {
			return nil
		}
		return callErr
	})
	if err == breaker.ErrBreakerOpen {
		return ErrStoreUnavailable
	}
	return callErr
}

func (s *Store) Create(ctx context.Context, req identity.NewIdentityRequest) (*identity.MqttIdentity, error) {
	return s.inner.Create(ctx, req)
}

func (s *Store) Update(ctx context.Context, username string, req identity.UpdateIdentityRequest) (*identity.MqttIdentity, error) {
	return s.inner.Update(ctx, username, req)
}

func (s *Store) Delete(ctx context.Context, username string) error {
	return s.inner.Delete(ctx, username)
}

func (s *Store) Ping(ctx context.Context) error {
	var callErr error
	err := s.cb.Run(func() error {
		callErr = s.inner.Ping(ctx)
		return callErr
	})
	if err == breaker.ErrBreakerOpen {
		return ErrStoreUnavailable
	}
	return callErr
}

func (s *Store) Close() {
	s.inner.Close()
}
