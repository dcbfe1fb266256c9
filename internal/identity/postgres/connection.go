/*
PostgreSQL connection management for the identity store.

Provides connection pooling, timeout configuration, and health checking,
adapted from database-vault/storage/postgresql/connection.go.
*/
package postgres

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectionConfig holds pool sizing and timeout parameters.
type ConnectionConfig struct {
	DatabaseURL       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	ConnectionTimeout time.Duration
	QueryTimeout      time.Duration
}

// DefaultConnectionConfig returns production-ready defaults.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxConnections:    25,
		MinConnections:    5,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		ConnectionTimeout: 10 * time.Second,
		QueryTimeout:      5 * time.Second,
	}
}

// createConnectionPool establishes a pgx connection pool with the given
// configuration, logging connection events without exposing credentials.
func createConnectionPool(cfg ConnectionConfig) (*pgxpool.Pool, error) {
	parsedURL, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL format: %v", err)
	}

	maskedURL := *parsedURL
	if maskedURL.User != nil {
		maskedURL.User = url.UserPassword(maskedURL.User.Username(), "***")
	}
	log.Printf("Connecting to PostgreSQL: %s", maskedURL.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %v", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = cfg.MinConnections
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectionTimeout

	poolConfig.ConnConfig.RuntimeParams = map[string]string{
		"application_name":                    "gatekeeperd",
		"statement_timeout":                   fmt.Sprintf("%d", cfg.QueryTimeout.Milliseconds()),
		"idle_in_transaction_session_timeout": "60000",
		"lock_timeout":                        "10000",
		"client_encoding":                     "UTF8",
	}

	poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		log.Printf("Establishing new PostgreSQL connection to %s:%d", cc.Host, cc.Port)
		return nil
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		log.Printf("PostgreSQL connection established successfully")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	stats := pool.Stat()
	log.Printf("Connection pool initialized: total=%d, idle=%d, max=%d",
		stats.TotalConns(), stats.IdleConns(), stats.MaxConns())

	return pool, nil
}

// checkDatabaseConnectivity performs a health-check query on top of a ping.
func checkDatabaseConnectivity(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %v", err)
	}

	var result int
	if err := pool.QueryRow(ctx, healthCheckQuery).Scan(&result); err != nil {
		return fmt.Errorf("health check query failed: %v", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected health check result: %d", result)
	}

	stats := pool.Stat()
	if stats.TotalConns() == 0 {
		return fmt.Errorf("no connections in pool")
	}
	if stats.AcquireCount() > 0 && stats.TotalConns() == stats.MaxConns() {
		log.Printf("Warning: connection pool at maximum capacity (%d connections)", stats.MaxConns())
	}

	return nil
}
