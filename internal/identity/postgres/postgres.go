/*
PostgreSQL implementation of identity.Store for the MQTT Gatekeeper.

Provides the credential store backing the decision pipeline: indexed
username lookup, login bookkeeping, and admin-surface CRUD. Uses a
connection pool for performance and reliability, adapted from
database-vault/storage/postgresql/postgresql.go but rewired against an
identities table instead of database-vault's encrypted-email users table.
*/
package postgres

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gatekeeperd/internal/identity"
	"gatekeeperd/internal/identity/password"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// patternDelimiter is the canonical separator for persisted ACL pattern
// lists (spec §6: "pattern lists stored as delimited strings (comma-separated)").
const patternDelimiter = ","

// Store implements identity.Store against a PostgreSQL identities table.
//
// Security features:
// - Connection pooling bounds resource usage under load
// - Prepared-statement-shaped query constants prevent SQL injection
// - Password hashing happens before any value reaches the database
//
// Thread-safe via the underlying pgx pool.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	hashCost     int
}

// New creates a PostgreSQL-backed identity store and verifies connectivity.
func New(databaseURL string, hashCost int) (*Store, error) {
	cfg := DefaultConnectionConfig()
	cfg.DatabaseURL = databaseURL

	pool, err := createConnectionPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %v", err)
	}

	if err := checkDatabaseConnectivity(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connectivity check failed: %v", err)
	}

	log.Printf("identity store initialized with %d connections", pool.Stat().TotalConns())

	return &Store{pool: pool, queryTimeout: cfg.QueryTimeout, hashCost: hashCost}, nil
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, patternDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinPatterns(patterns []string) string {
	return strings.Join(patterns, patternDelimiter)
}

// Lookup retrieves an identity by username. O(1) expected via the primary
// key index on username (spec §4.1).
func (s *Store) Lookup(ctx context.Context, username string) (*identity.MqttIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var id identity.MqttIdentity
	var publishPatterns, subscribePatterns string
	var lastLoginAt pgtype.Timestamptz
	var lastLoginIP *string

	err := s.pool.QueryRow(ctx, lookupByUsernameQuery, username).Scan(
		&id.Username,
		&id.PasswordHash,
		&id.AllowedClientID,
		&id.IsAdmin,
		&id.IsActive,
		&publishPatterns,
		&subscribePatterns,
		&id.MaxConnections,
		&id.LoginCount,
		&lastLoginAt,
		&lastLoginIP,
		&id.CreatedAt,
		&id.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, identity.ErrNotFound
		}
		return nil, mapPostgreSQLError(err, "Lookup")
	}

	id.AllowedPublishPatterns = splitPatterns(publishPatterns)
	id.AllowedSubscribePatterns = splitPatterns(subscribePatterns)
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		id.LastLoginAt = &t
	}
	if lastLoginIP != nil {
		id.LastLoginIP = *lastLoginIP
	}

	return &id, nil
}

// RecordSuccessfulLogin atomically advances login bookkeeping for username.
// Called fire-and-forget after an allow verdict; never on the hot path.
func (s *Store) RecordSuccessfulLogin(ctx context.Context, username, peerAddr string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := time.Now()
	result, err := s.pool.Exec(ctx, recordSuccessfulLoginQuery, username, now, peerAddr)
	if err != nil {
		return mapPostgreSQLError(err, "RecordSuccessfulLogin")
	}
	if result.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// Create inserts a new identity, hashing the plaintext password before
// persistence. Admin surface only.
func (s *Store) Create(ctx context.Context, req identity.NewIdentityRequest) (*identity.MqttIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	hash, err := password.Hash(req.Password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, usernameExistsQuery, req.Username).Scan(&exists); err != nil {
		return nil, mapPostgreSQLError(err, "Create.CheckExists")
	}
	if exists {
		return nil, identity.ErrAlreadyExists
	}

	now := time.Now()
	_, err = s.pool.Exec(ctx, insertIdentityQuery,
		req.Username,
		hash,
		req.AllowedClientID,
		req.IsAdmin,
		req.IsActive,
		joinPatterns(req.AllowedPublishPatterns),
		joinPatterns(req.AllowedSubscribePatterns),
		req.MaxConnections,
		now,
	)
	if err != nil {
		return nil, mapPostgreSQLError(err, "Create.Insert")
	}

	log.Printf("identity created: username=%s", req.Username)

	return s.Lookup(ctx, req.Username)
}

// Update applies a partial update to an existing identity. Admin surface only.
func (s *Store) Update(ctx context.Context, username string, req identity.UpdateIdentityRequest) (*identity.MqttIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapPostgreSQLError(err, "Update.Begin")
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, usernameExistsQuery, username).Scan(&exists); err != nil {
		return nil, mapPostgreSQLError(err, "Update.CheckExists")
	}
	if !exists {
		return nil, identity.ErrNotFound
	}

	now := time.Now()

	if req.Password != nil {
		hash, err := password.Hash(*req.Password, s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("update identity: %w", err)
		}
		if _, err := tx.Exec(ctx, updatePasswordQuery, username, hash, now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.Password")
		}
	}
	if req.AllowedClientID != nil {
		if _, err := tx.Exec(ctx, updateClientIDQuery, username, *req.AllowedClientID, now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.ClientID")
		}
	}
	if req.IsAdmin != nil {
		if _, err := tx.Exec(ctx, updateAdminFlagQuery, username, *req.IsAdmin, now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.IsAdmin")
		}
	}
	if req.IsActive != nil {
		if _, err := tx.Exec(ctx, updateActiveFlagQuery, username, *req.IsActive, now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.IsActive")
		}
	}
	if req.AllowedPublishPatterns != nil {
		if _, err := tx.Exec(ctx, updatePublishPatternsQuery, username, joinPatterns(req.AllowedPublishPatterns), now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.PublishPatterns")
		}
	}
	if req.AllowedSubscribePatterns != nil {
		if _, err := tx.Exec(ctx, updateSubscribePatternsQuery, username, joinPatterns(req.AllowedSubscribePatterns), now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.SubscribePatterns")
		}
	}
	if req.MaxConnections != nil {
		if _, err := tx.Exec(ctx, updateMaxConnectionsQuery, username, *req.MaxConnections, now); err != nil {
			return nil, mapPostgreSQLError(err, "Update.MaxConnections")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPostgreSQLError(err, "Update.Commit")
	}

	log.Printf("identity updated: username=%s", username)

	return s.Lookup(ctx, username)
}

// Delete removes an identity permanently. Admin surface only.
func (s *Store) Delete(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.pool.Exec(ctx, deleteIdentityQuery, username)
	if err != nil {
		return mapPostgreSQLError(err, "Delete")
	}
	if result.RowsAffected() == 0 {
		return identity.ErrNotFound
	}

	log.Printf("identity deleted: username=%s", username)
	return nil
}

// Ping verifies store reachability for the liveness probe.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close gracefully shuts down the connection pool.
func (s *Store) Close() {
	log.Printf("closing identity store connection pool")
	s.pool.Close()
}

// IsRetryable exposes the PostgreSQL error classifier to callers outside
// this package (the breaker decorator uses it to decide whether an open
// trip should count an error at all).
func IsRetryable(err error) bool {
	return isRetryableError(err)
}
