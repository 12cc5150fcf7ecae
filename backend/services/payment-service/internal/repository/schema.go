package repository

// Schema is applied at startup; every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id          UUID PRIMARY KEY,
		user_id     BIGINT NOT NULL UNIQUE,
		balance     NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_entries (
		id               UUID PRIMARY KEY,
		wallet_id        UUID NOT NULL REFERENCES wallets(id),
		user_id          BIGINT NOT NULL,
		kind             TEXT NOT NULL CHECK (kind IN ('debit', 'credit')),
		amount           NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		balance_after    NUMERIC(14,2) NOT NULL,
		idempotency_key  TEXT NOT NULL UNIQUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS wallet_entries_user_idx ON wallet_entries (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id             UUID PRIMARY KEY,
		session_id     TEXT NOT NULL UNIQUE,
		user_id        BIGINT NOT NULL,
		amount         NUMERIC(14,2) NOT NULL,
		status         TEXT NOT NULL,
		reason         TEXT NOT NULL DEFAULT '',
		balance_after  NUMERIC(14,2),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS payments_user_idx ON payments (user_id, created_at DESC)`,
}
