package repository

// Schema is applied at startup; every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS charging_stations (
		id               TEXT PRIMARY KEY,
		vendor           TEXT NOT NULL DEFAULT '',
		model            TEXT NOT NULL DEFAULT '',
		firmware_version TEXT NOT NULL DEFAULT '',
		last_heartbeat   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS chargers (
		charger_id   TEXT PRIMARY KEY,
		station_id   TEXT NOT NULL,
		connector_id INT NOT NULL,
		status       TEXT NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (station_id, connector_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		station_id    TEXT,
		price_per_kwh NUMERIC(14,2) NOT NULL CHECK (price_per_kwh >= 0),
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		valid_until   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ocpp_transactions (
		transaction_id BIGSERIAL PRIMARY KEY,
		session_id     UUID NOT NULL UNIQUE,
		station_id     TEXT NOT NULL,
		connector_id   INT NOT NULL,
		user_id        BIGINT NOT NULL,
		id_tag         TEXT NOT NULL,
		meter_start    BIGINT NOT NULL,
		meter_last     BIGINT,
		meter_stop     BIGINT,
		started_at     TIMESTAMPTZ NOT NULL,
		stopped_at     TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ocpp_messages (
		id           BIGSERIAL PRIMARY KEY,
		station_id   TEXT NOT NULL,
		direction    TEXT NOT NULL,
		message_type TEXT NOT NULL,
		payload      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ocpp_messages_station_idx ON ocpp_messages (station_id, created_at)`,
}
