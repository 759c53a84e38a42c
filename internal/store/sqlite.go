package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/FearlessSpiff/radio-calico/internal/models"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// sqliteStore is the single-file backend used by default and in tests.
// WAL keeps reads cheap while ratings trickle in; the busy timeout
// absorbs write contention instead of surfacing SQLITE_BUSY.
type sqliteStore struct {
	db *sqlx.DB
}

func openSQLite(path string) (*sqliteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir %s: %w", dir, err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) GetRating(ctx context.Context, trackID, fingerprint string) (int, bool, error) {
	var value int
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM ratings WHERE track_id = ? AND fingerprint = ?`,
		trackID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (s *sqliteStore) UpsertRating(ctx context.Context, r *models.Rating) error {
	// The conflict clause makes the loser of a racing first-rating
	// land as an update, so the UNIQUE constraint never bubbles up.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ratings (track_id, artist, title, fingerprint, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (track_id, fingerprint) DO UPDATE SET value = excluded.value`,
		r.TrackID, r.Artist, r.Title, r.Fingerprint, r.Value)
	return err
}

func (s *sqliteStore) DeleteRating(ctx context.Context, trackID, fingerprint string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE track_id = ? AND fingerprint = ?`,
		trackID, fingerprint)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *sqliteStore) CountRatings(ctx context.Context, trackID string) (int, int, error) {
	// value = 1 evaluates to 0/1 in SQLite, so SUM counts matches.
	var c ratingCounts
	err := s.db.GetContext(ctx, &c, `
		SELECT COALESCE(SUM(value = 1), 0)  AS thumbs_up,
		       COALESCE(SUM(value = -1), 0) AS thumbs_down
		FROM ratings WHERE track_id = ?`, trackID)
	if err != nil {
		return 0, 0, err
	}
	return c.ThumbsUp, c.ThumbsDown, nil
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// ratingCounts is the scan target both backends share for their
// aggregate query.
type ratingCounts struct {
	ThumbsUp   int `db:"thumbs_up"`
	ThumbsDown int `db:"thumbs_down"`
}
