// Package sqlledger implements store.Ledger on top of database/sql,
// against either MySQL (github.com/go-sql-driver/mysql) or SQLite
// (modernc.org/sqlite), matching the append-only ai_usage table described
// in spec §6.
package sqlledger

const createTableMySQL = `
CREATE TABLE IF NOT EXISTS ai_usage (
	id            VARCHAR(64) PRIMARY KEY,
	user_id       VARCHAR(128),
	operation     VARCHAR(64) NOT NULL,
	model         VARCHAR(64) NOT NULL,
	input_tokens  INT NOT NULL,
	output_tokens INT NOT NULL,
	total_tokens  INT NOT NULL,
	cost          DOUBLE NOT NULL,
	quality_score DOUBLE NULL,
	attempts      INT NOT NULL,
	success       BOOLEAN NOT NULL,
	document_id   VARCHAR(128),
	graph_id      VARCHAR(128),
	timestamp     DATETIME NOT NULL,
	INDEX idx_ai_usage_user_ts (user_id, timestamp),
	INDEX idx_ai_usage_operation (operation),
	INDEX idx_ai_usage_timestamp (timestamp)
)`

const createTableSQLite = `
CREATE TABLE IF NOT EXISTS ai_usage (
	id            TEXT PRIMARY KEY,
	user_id       TEXT,
	operation     TEXT NOT NULL,
	model         TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	total_tokens  INTEGER NOT NULL,
	cost          REAL NOT NULL,
	quality_score REAL,
	attempts      INTEGER NOT NULL,
	success       INTEGER NOT NULL,
	document_id   TEXT,
	graph_id      TEXT,
	timestamp     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_usage_user_ts ON ai_usage(user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_ai_usage_operation ON ai_usage(operation);
CREATE INDEX IF NOT EXISTS idx_ai_usage_timestamp ON ai_usage(timestamp);
`

const insertRow = `INSERT INTO ai_usage
	(id, user_id, operation, model, input_tokens, output_tokens, total_tokens,
	 cost, quality_score, attempts, success, document_id, graph_id, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const sumCostSince = `SELECT COALESCE(SUM(cost), 0) FROM ai_usage WHERE user_id = ? AND timestamp >= ?`

const selectRecordsSince = `SELECT id, user_id, operation, model, input_tokens, output_tokens,
	cost, quality_score, attempts, success, document_id, graph_id, timestamp
	FROM ai_usage WHERE user_id = ? AND timestamp >= ? ORDER BY timestamp ASC`
