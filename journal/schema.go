package journal

// Money and quantities are stored as TEXT so decimals round-trip exactly.
// Times are fixed-width RFC3339 in UTC.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	symbol TEXT NOT NULL,
	type TEXT NOT NULL,
	price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	total TEXT NOT NULL,
	fees TEXT NOT NULL,
	profit_loss TEXT,
	is_open INTEGER NOT NULL,
	position_opened_at TEXT NOT NULL,
	exit_deadline TEXT,
	exit_reason TEXT NOT NULL DEFAULT '',
	unmatched INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	emotion TEXT NOT NULL DEFAULT '',
	rating INTEGER NOT NULL DEFAULT 0,
	journal_created_at TEXT,
	source TEXT NOT NULL,
	source_id TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date);
`

const tradeColumns = `id, date, symbol, type, price, quantity, total, fees,
	profit_loss, is_open, position_opened_at, exit_deadline, exit_reason, unmatched,
	notes, tags, emotion, rating, journal_created_at, source, source_id, fingerprint`
