package repository

// Schema is applied at startup; every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS charging_sessions (
		session_id      TEXT PRIMARY KEY,
		user_id         BIGINT NOT NULL,
		charger_id      TEXT NOT NULL,
		station_id      TEXT NOT NULL,
		status          TEXT NOT NULL,
		start_time      TIMESTAMPTZ NOT NULL,
		end_time        TIMESTAMPTZ,
		energy_kwh      NUMERIC(14,3) NOT NULL DEFAULT 0 CHECK (energy_kwh >= 0),
		rate_per_kwh    NUMERIC(14,2),
		amount          NUMERIC(14,2),
		payment_id      TEXT NOT NULL DEFAULT '',
		failure_reason  TEXT NOT NULL DEFAULT '',
		compensated_at  TIMESTAMPTZ,
		version         BIGINT NOT NULL DEFAULT 1,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK ((status = 'active') = (end_time IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS charging_sessions_user_idx ON charging_sessions (user_id, start_time DESC)`,
	`CREATE INDEX IF NOT EXISTS charging_sessions_status_idx ON charging_sessions (status, updated_at)`,
}
