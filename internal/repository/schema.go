package repository

// Schema definitions for the underwriting database.
// score_history needs a driver-specific autoincrement key; everything
// else is shared between SQLite and PostgreSQL.

const schemaScoreHistorySQLite = `
CREATE TABLE IF NOT EXISTS score_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    core_score INTEGER NOT NULL,
    bayesian_score INTEGER NOT NULL,
    total_score INTEGER NOT NULL,
    simple_monthly_income REAL NOT NULL,
    name TEXT,
    emails TEXT NOT NULL,
    phones TEXT NOT NULL,
    details TEXT NOT NULL,
    request_data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_history_created ON score_history(created_at);
`

const schemaScoreHistoryPostgres = `
CREATE TABLE IF NOT EXISTS score_history (
    id BIGSERIAL PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    core_score INTEGER NOT NULL,
    bayesian_score INTEGER NOT NULL,
    total_score INTEGER NOT NULL,
    simple_monthly_income DOUBLE PRECISION NOT NULL,
    name TEXT,
    emails TEXT NOT NULL,
    phones TEXT NOT NULL,
    details TEXT NOT NULL,
    request_data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_history_created ON score_history(created_at);
`

// schemaLadderConfigs stores operator overrides of the sub-score ladders.
const schemaLadderConfigs = `
CREATE TABLE IF NOT EXISTS ladder_configs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    grp TEXT NOT NULL,
    expression TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements for a driver in order.
func AllSchemas(driver string) []string {
	history := schemaScoreHistorySQLite
	if driver == "postgres" {
		history = schemaScoreHistoryPostgres
	}
	return []string{
		history,
		schemaLadderConfigs,
	}
}
