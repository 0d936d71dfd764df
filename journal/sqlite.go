package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradelog/trade"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the ledger database at path. A single
// connection serializes writers, which keeps each insert-if-absent batch
// atomic against concurrent imports.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return nil, trade.Persist("open", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, trade.Persist("schema", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) InsertIfAbsent(ctx context.Context, trades []trade.Trade) (res InsertResult, err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return res, trade.Persist("insert", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING`)
	if err != nil {
		return res, trade.Persist("insert", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		args, err := tradeArgs(t)
		if err != nil {
			return InsertResult{}, trade.Persist("insert", err)
		}
		r, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return InsertResult{}, trade.Persist("insert", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return InsertResult{}, trade.Persist("insert", err)
		}
		if n == 0 {
			res.Skipped++
			continue
		}
		res.Inserted = append(res.Inserted, t)
	}

	if err = tx.Commit(); err != nil {
		return InsertResult{}, trade.Persist("insert", err)
	}
	return res, nil
}

func (j *SQLite) List(ctx context.Context) ([]trade.Trade, error) {
	return j.query(ctx, "list", `SELECT `+tradeColumns+` FROM trades ORDER BY date ASC, id ASC`)
}

func (j *SQLite) ListBySymbol(ctx context.Context, symbol string) ([]trade.Trade, error) {
	return j.query(ctx, "list", `SELECT `+tradeColumns+` FROM trades WHERE symbol = ? ORDER BY date ASC, id ASC`, symbol)
}

func (j *SQLite) Get(ctx context.Context, id string) (trade.Trade, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return trade.Trade{}, fmt.Errorf("trade %q: %w", id, trade.ErrNotFound)
		}
		return trade.Trade{}, trade.Persist("get", err)
	}
	return t, nil
}

func (j *SQLite) SaveMatches(ctx context.Context, trades []trade.Trade) (err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return trade.Persist("save matches", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE trades SET profit_loss = ?, is_open = ?, position_opened_at = ?, unmatched = ?
		WHERE id = ?`)
	if err != nil {
		return trade.Persist("save matches", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err = stmt.ExecContext(ctx, nullDecimal(t.ProfitLoss), t.IsOpen, formatTime(t.PositionOpenedAt), t.Unmatched, t.ID)
		if err != nil {
			return trade.Persist("save matches", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return trade.Persist("save matches", err)
	}
	return nil
}

func (j *SQLite) UpdateDeadline(ctx context.Context, id string, deadline *time.Time, reason string) error {
	return j.update(ctx, "update deadline", id,
		`UPDATE trades SET exit_deadline = ?, exit_reason = ? WHERE id = ?`,
		nullTime(deadline), reason, id)
}

func (j *SQLite) UpdateJournal(ctx context.Context, id string, jn trade.Journal) error {
	tags, err := json.Marshal(jn.Tags)
	if err != nil {
		return trade.Persist("update journal", err)
	}
	return j.update(ctx, "update journal", id,
		`UPDATE trades SET notes = ?, tags = ?, emotion = ?, rating = ?, journal_created_at = ? WHERE id = ?`,
		jn.Notes, string(tags), jn.Emotion, jn.Rating, nullTime(jn.CreatedAt), id)
}

func (j *SQLite) Delete(ctx context.Context, id string) error {
	return j.update(ctx, "delete", id, `DELETE FROM trades WHERE id = ?`, id)
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) update(ctx context.Context, op, id, query string, args ...any) error {
	r, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return trade.Persist(op, err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return trade.Persist(op, err)
	}
	if n == 0 {
		return fmt.Errorf("trade %q: %w", id, trade.ErrNotFound)
	}
	return nil
}

func (j *SQLite) query(ctx context.Context, op, query string, args ...any) ([]trade.Trade, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, trade.Persist(op, err)
	}
	defer rows.Close()

	var out []trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, trade.Persist(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, trade.Persist(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (trade.Trade, error) {
	var (
		t                   trade.Trade
		date, opened        string
		side, source, tags  string
		pl                  decimal.NullDecimal
		deadline, journalAt sql.NullString
	)
	err := s.Scan(
		&t.ID, &date, &t.Symbol, &side,
		&t.Price, &t.Quantity, &t.Total, &t.Fees,
		&pl, &t.IsOpen, &opened, &deadline, &t.ExitReason, &t.Unmatched,
		&t.Journal.Notes, &tags, &t.Journal.Emotion, &t.Journal.Rating, &journalAt,
		&source, &t.SourceID, &t.Fingerprint,
	)
	if err != nil {
		return trade.Trade{}, err
	}

	t.Type = trade.Side(side)
	t.Source = trade.Source(source)
	if pl.Valid {
		v := pl.Decimal
		t.ProfitLoss = &v
	}
	if t.Date, err = parseTime(date); err != nil {
		return trade.Trade{}, err
	}
	if t.PositionOpenedAt, err = parseTime(opened); err != nil {
		return trade.Trade{}, err
	}
	if t.ExitDeadline, err = parseNullTime(deadline); err != nil {
		return trade.Trade{}, err
	}
	if t.Journal.CreatedAt, err = parseNullTime(journalAt); err != nil {
		return trade.Trade{}, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &t.Journal.Tags); err != nil {
			return trade.Trade{}, fmt.Errorf("tags of %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func tradeArgs(t trade.Trade) ([]any, error) {
	tags, err := json.Marshal(t.Journal.Tags)
	if err != nil {
		return nil, err
	}
	return []any{
		t.ID, formatTime(t.Date), t.Symbol, string(t.Type),
		t.Price.String(), t.Quantity.String(), t.Total.String(), t.Fees.String(),
		nullDecimal(t.ProfitLoss), t.IsOpen, formatTime(t.PositionOpenedAt),
		nullTime(t.ExitDeadline), t.ExitReason, t.Unmatched,
		t.Journal.Notes, string(tags), t.Journal.Emotion, t.Journal.Rating, nullTime(t.Journal.CreatedAt),
		string(t.Source), t.SourceID, t.Fingerprint,
	}, nil
}

// Fixed width so that ORDER BY on the text column is chronological.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
