package sqlitestore

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

// schema creates the ledger tables.
//
// Decimals are stored as TEXT to keep every digit. Times are stored as
// RFC 3339 text with their offset, next to their unix nanoseconds used for
// ordering. Rows get INTEGER PRIMARY KEY identifiers, SQLite assigns one more
// than the largest in use.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY,
    time TEXT NOT NULL,
    time_ns INTEGER NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('BUY', 'SELL', 'DRP')),
    symbol TEXT NOT NULL,
    quantity TEXT NOT NULL,
    price TEXT NOT NULL,
    fees TEXT NOT NULL,
    exchange TEXT NOT NULL DEFAULT '',
    broker_ref TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    method TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transactions_time ON transactions(time_ns, id);
CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(symbol);

CREATE TABLE IF NOT EXISTS lots (
    id INTEGER PRIMARY KEY,
    symbol TEXT NOT NULL,
    acquired_at TEXT NOT NULL,
    acquired_ns INTEGER NOT NULL,
    quantity TEXT NOT NULL,
    cost_basis TEXT NOT NULL,
    threshold TEXT NOT NULL,
    source_tx_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lots_symbol ON lots(symbol, acquired_ns, id);

CREATE TABLE IF NOT EXISTS disposals (
    id INTEGER PRIMARY KEY,
    sell_tx_id INTEGER NOT NULL,
    lot_id INTEGER NOT NULL REFERENCES lots(id),
    quantity TEXT NOT NULL,
    proceeds TEXT NOT NULL,
    cost_basis TEXT NOT NULL,
    gain TEXT NOT NULL,
    discount INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_disposals_sell ON disposals(sell_tx_id);
CREATE INDEX IF NOT EXISTS idx_disposals_lot ON disposals(lot_id);
`
