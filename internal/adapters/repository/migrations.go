package repository

// schema is applied on open. Statements are idempotent so reopening an
// existing database is safe. The score_records table has no UPDATE or
// DELETE path anywhere in this package.
const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	artist     TEXT NOT NULL DEFAULT '',
	label_text TEXT NOT NULL DEFAULT '',
	first_seen TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS score_records (
	id           TEXT PRIMARY KEY,
	track_id     TEXT NOT NULL,
	score_type   TEXT NOT NULL,
	value        REAL NOT NULL,
	components   TEXT NOT NULL,
	why_selected TEXT NOT NULL,
	risk_flags   TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	computed_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_records_series
	ON score_records(track_id, score_type, computed_at);

CREATE INDEX IF NOT EXISTS idx_score_records_type_time
	ON score_records(score_type, computed_at);
`
