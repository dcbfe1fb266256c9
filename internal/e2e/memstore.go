package e2e

import (
	"context"
	"sync"

	"gatekeeperd/internal/identity"
)

// memStore is a minimal in-memory identity.Store for end-to-end tests. It
// supports only what the test fixtures need; admin CRUD is exercised
// elsewhere (internal/httpapi's own fake store).
type memStore struct {
	mu         sync.Mutex
	identities map[string]*identity.MqttIdentity
}

func newMemStore() *memStore {
	return &memStore{identities: make(map[string]*identity.MqttIdentity)}
}

func (s *memStore) put(i identity.MqttIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[i.Username] = &i
}

func (s *memStore) Lookup(ctx context.Context, username string) (*identity.MqttIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.identities[username]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (s *memStore) RecordSuccessfulLogin(ctx context.Context, username, peerAddr string) error {
	return nil
}

func (s *memStore) Create(ctx context.Context, req identity.NewIdentityRequest) (*identity.MqttIdentity, error) {
	return nil, identity.ErrAlreadyExists
}

func (s *memStore) Update(ctx context.Context, username string, req identity.UpdateIdentityRequest) (*identity.MqttIdentity, error) {
	return nil, identity.ErrNotFound
}

func (s *memStore) Delete(ctx context.Context, username string) error {
	return identity.ErrNotFound
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) Close() {}
