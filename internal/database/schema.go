package database

import "database/sql"

// Bootstrap applies the idempotent schema. The store was originally a
// document database, so tables keep the document field names and ids stay
// opaque strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		id           TEXT PRIMARY KEY,
		email        TEXT NOT NULL,
		password     TEXT NOT NULL,
		profile_name TEXT NOT NULL DEFAULT '',
		profile_pin  TEXT NOT NULL DEFAULT '',
		package_type TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'ready',
		buyer_id     TEXT NOT NULL DEFAULT '',
		buyer_name   TEXT NOT NULL DEFAULT '',
		claimed_at   TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		sold_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_fifo
		ON inventory (package_type, status, created_at, id)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id             TEXT PRIMARY KEY,
		buyer_id       TEXT NOT NULL,
		buyer_name     TEXT NOT NULL,
		buyer_username TEXT NOT NULL DEFAULT '',
		package_type   TEXT NOT NULL,
		price          BIGINT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		account_sent   BOOLEAN NOT NULL DEFAULT false,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders (buyer_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		first_name   TEXT NOT NULL DEFAULT '',
		username     TEXT NOT NULL DEFAULT '',
		role         TEXT NOT NULL DEFAULT 'customer',
		balance      BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		referred_by  TEXT NOT NULL DEFAULT '',
		is_first_buy BOOLEAN NOT NULL DEFAULT true,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS vouchers (
		id         TEXT PRIMARY KEY,
		code       TEXT NOT NULL UNIQUE,
		amount     BIGINT NOT NULL,
		quota      INTEGER NOT NULL DEFAULT 0,
		used       INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS voucher_claims (
		voucher_id TEXT NOT NULL REFERENCES vouchers (id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		claimed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (voucher_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS broadcasts (
		id           TEXT PRIMARY KEY,
		message      TEXT NOT NULL,
		target       TEXT NOT NULL DEFAULT 'all',
		image_url    TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'pending',
		sent_count   INTEGER NOT NULL DEFAULT 0,
		total_target INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		data       JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS admin_keys (
		admin_id   TEXT PRIMARY KEY,
		key_hash   TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT 'admin',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS system_logs (
		id         BIGSERIAL PRIMARY KEY,
		action     TEXT NOT NULL,
		details    TEXT NOT NULL DEFAULT '',
		type       TEXT NOT NULL DEFAULT 'info',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Bootstrap creates all tables and indexes if they do not exist yet.
func Bootstrap(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
