package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/darkodi/shortlinks/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS links (
    shortcode    TEXT PRIMARY KEY,
    original_url TEXT NOT NULL,
    created_at   INTEGER NOT NULL,
    expires_at   INTEGER NOT NULL,
    click_count  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS clicks (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    shortcode  TEXT NOT NULL,
    clicked_at INTEGER NOT NULL,
    referrer   TEXT,
    location   TEXT NOT NULL,
    user_agent TEXT
);
CREATE INDEX IF NOT EXISTS idx_clicks_shortcode ON clicks (shortcode, id);
`

// SQLiteStore implements LinkStore and HistoryStore on a single sqlite handle.
// Timestamps are stored as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn (":memory:" for a process-local database) and creates the schema
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec *model.LinkRecord) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO links (shortcode, original_url, created_at, expires_at, click_count)
         VALUES (?, ?, ?, ?, ?) ON CONFLICT (shortcode) DO NOTHING`,
		rec.Shortcode, rec.OriginalURL, rec.CreatedAt.UnixNano(), rec.ExpiresAt.UnixNano(), rec.ClickCount,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, shortcode string) (*model.LinkRecord, error) {
	return scanLink(s.db.QueryRowContext(ctx,
		"SELECT shortcode, original_url, created_at, expires_at, click_count FROM links WHERE shortcode = ?",
		shortcode,
	))
}

func (s *SQLiteStore) IncrementClicks(ctx context.Context, shortcode string, now time.Time) (*model.LinkRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rec, err := scanLink(tx.QueryRowContext(ctx,
		"SELECT shortcode, original_url, created_at, expires_at, click_count FROM links WHERE shortcode = ?",
		shortcode,
	))
	if err != nil {
		return nil, err
	}
	if rec.ExpiredAt(now) {
		return nil, ErrExpired
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE links SET click_count = click_count + 1 WHERE shortcode = ?",
		shortcode,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rec.ClickCount++
	return rec, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, shortcode string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM links WHERE shortcode = ?", shortcode)
	return err
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT shortcode FROM links WHERE expires_at < ?", cutoff.UnixNano())
	if err != nil {
		return nil, err
	}

	var removed []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM links WHERE expires_at < ?", cutoff.UnixNano()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

// Init clears any rows left under shortcode; an empty history is the absence of rows
func (s *SQLiteStore) Init(ctx context.Context, shortcode string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM clicks WHERE shortcode = ?", shortcode)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, shortcode string, event model.ClickEvent) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO clicks (shortcode, clicked_at, referrer, location, user_agent) VALUES (?, ?, ?, ?, ?)",
		shortcode, event.Timestamp.UnixNano(), nullString(event.Referrer), event.Location, nullString(event.UserAgent),
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, shortcode string) ([]model.ClickEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT clicked_at, referrer, location, user_agent FROM clicks WHERE shortcode = ? ORDER BY id",
		shortcode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.ClickEvent{}
	for rows.Next() {
		var (
			clickedAt           int64
			referrer, userAgent sql.NullString
			event               model.ClickEvent
		)
		if err := rows.Scan(&clickedAt, &referrer, &event.Location, &userAgent); err != nil {
			return nil, err
		}
		event.Timestamp = time.Unix(0, clickedAt).UTC()
		event.Referrer = stringPtr(referrer)
		event.UserAgent = stringPtr(userAgent)
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, shortcode string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM clicks WHERE shortcode = ?", shortcode)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================
// HELPERS
// ============================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*model.LinkRecord, error) {
	var (
		rec                  model.LinkRecord
		createdAt, expiresAt int64
	)
	err := row.Scan(&rec.Shortcode, &rec.OriginalURL, &createdAt, &expiresAt, &rec.ClickCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
