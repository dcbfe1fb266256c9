package postgres

// SQL statements for the identities table. Kept as constants rather than an
// ORM layer, following database-vault/storage/postgresql's query-constant
// pattern.
const (
	lookupByUsernameQuery = `
		SELECT username, password_hash, allowed_client_id, is_admin, is_active,
		       allowed_publish_patterns, allowed_subscribe_patterns, max_connections,
		       login_count, last_login_at, last_login_ip, created_at, updated_at
		FROM identities
		WHERE username = $1`

	usernameExistsQuery = `SELECT EXISTS(SELECT 1 FROM identities WHERE username = $1)`

	insertIdentityQuery = `
		INSERT INTO identities (
			username, password_hash, allowed_client_id, is_admin, is_active,
			allowed_publish_patterns, allowed_subscribe_patterns, max_connections,
			login_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)`

	recordSuccessfulLoginQuery = `
		UPDATE identities
		SET login_count = login_count + 1, last_login_at = $2, last_login_ip = $3, updated_at = $2
		WHERE username = $1`

	updatePasswordQuery = `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE username = $1`

	updateClientIDQuery = `UPDATE identities SET allowed_client_id = $2, updated_at = $3 WHERE username = $1`

	updateAdminFlagQuery = `UPDATE identities SET is_admin = $2, updated_at = $3 WHERE username = $1`

	updateActiveFlagQuery = `UPDATE identities SET is_active = $2, updated_at = $3 WHERE username = $1`

	updatePublishPatternsQuery = `UPDATE identities SET allowed_publish_patterns = $2, updated_at = $3 WHERE username = $1`

	updateSubscribePatternsQuery = `UPDATE identities SET allowed_subscribe_patterns = $2, updated_at = $3 WHERE username = $1`

	updateMaxConnectionsQuery = `UPDATE identities SET max_connections = $2, updated_at = $3 WHERE username = $1`

	deleteIdentityQuery = `DELETE FROM identities WHERE username = $1`

	healthCheckQuery = `SELECT 1`

	getConnectionCountQuery = `SELECT count(*) FROM pg_stat_activity WHERE datname = current_database()`
)
