package store

// schemaSQL is valid for both sqlite and postgres. Timestamps are stored as
// fixed-width UTC text so lexical order is chronological order.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id                   TEXT PRIMARY KEY,
    email                TEXT NOT NULL DEFAULT '',
    display_name         TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL DEFAULT '',
    type                 TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transactions (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    account_id           TEXT NOT NULL DEFAULT '',
    kind                 TEXT NOT NULL,
    amount               DOUBLE PRECISION NOT NULL,
    category             TEXT NOT NULL DEFAULT '',
    date                 TEXT NOT NULL,
    description          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS goals (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    title                TEXT NOT NULL DEFAULT '',
    target_amount        DOUBLE PRECISION NOT NULL,
    current_amount       DOUBLE PRECISION NOT NULL,
    target_date          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS debts (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL DEFAULT '',
    total_amount         DOUBLE PRECISION NOT NULL,
    remaining_amount     DOUBLE PRECISION NOT NULL,
    interest_rate        DOUBLE PRECISION NOT NULL DEFAULT 0,
    minimum_payment      DOUBLE PRECISION NOT NULL DEFAULT 0,
    due_date             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS anomalies (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    transaction_id       TEXT NOT NULL,
    anomaly_score        DOUBLE PRECISION NOT NULL,
    reason               TEXT NOT NULL,
    flagged_at           TEXT NOT NULL,
    reviewed             BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (user_id, transaction_id)
);

CREATE TABLE IF NOT EXISTS recurring_patterns (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    category             TEXT NOT NULL,
    approx_amount        BIGINT NOT NULL,
    pattern_key          TEXT NOT NULL,
    frequency            TEXT NOT NULL,
    average_amount       DOUBLE PRECISION NOT NULL,
    occurrence_count     INTEGER NOT NULL,
    last_detected        TEXT NOT NULL,
    UNIQUE (user_id, category, pattern_key)
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
CREATE INDEX IF NOT EXISTS idx_anomalies_user ON anomalies(user_id);
`
