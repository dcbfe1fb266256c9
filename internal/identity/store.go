package identity

import (
	"context"
	"errors"
)

// Store is the Credential Store contract (spec §4.1). The hot path only
// calls Lookup and RecordSuccessfulLogin; the admin-surface CRUD operations
// are invoked by the httpapi admin handlers, never from a decision endpoint.
type Store interface {
	// Lookup returns the identity for username, or ErrNotFound.
	Lookup(ctx context.Context, username string) (*MqttIdentity, error)

	// RecordSuccessfulLogin atomically increments login_count and sets
	// last_login_at/last_login_ip. Never called on the hot path directly;
	// callers schedule it fire-and-forget.
	RecordSuccessfulLogin(ctx context.Context, username, peerAddr string) error

	// Create inserts a new identity. Admin surface only.
	Create(ctx context.Context, req NewIdentityRequest) (*MqttIdentity, error)

	// Update applies a partial update to an existing identity. Admin surface only.
	Update(ctx context.Context, username string, req UpdateIdentityRequest) (*MqttIdentity, error)

	// Delete removes an identity. Admin surface only.
	Delete(ctx context.Context, username string) error

	// Ping verifies store reachability for the liveness probe.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close()
}

// ErrNotFound is returned by Lookup when no identity matches the username.
var ErrNotFound = errors.New("identity: not found")

// ErrAlreadyExists is returned by Create when the username is already taken.
var ErrAlreadyExists = errors.New("identity: already exists")
