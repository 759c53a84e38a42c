package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/FearlessSpiff/radio-calico/internal/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

// postgresStore backs deployments where the ratings outlive a single
// host. The DSN is the DATABASE_URL itself; pgx accepts the URL form.
type postgresStore struct {
	db *sqlx.DB
}

func openPostgres(dsn string) (*postgresStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) GetRating(ctx context.Context, trackID, fingerprint string) (int, bool, error) {
	var value int
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM ratings WHERE track_id = $1 AND fingerprint = $2`,
		trackID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (s *postgresStore) UpsertRating(ctx context.Context, r *models.Rating) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ratings (track_id, artist, title, fingerprint, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (track_id, fingerprint) DO UPDATE SET value = excluded.value`,
		r.TrackID, r.Artist, r.Title, r.Fingerprint, r.Value)
	return err
}

func (s *postgresStore) DeleteRating(ctx context.Context, trackID, fingerprint string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE track_id = $1 AND fingerprint = $2`,
		trackID, fingerprint)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *postgresStore) CountRatings(ctx context.Context, trackID string) (int, int, error) {
	var c ratingCounts
	err := s.db.GetContext(ctx, &c, `
		SELECT COUNT(*) FILTER (WHERE value = 1)  AS thumbs_up,
		       COUNT(*) FILTER (WHERE value = -1) AS thumbs_down
		FROM ratings WHERE track_id = $1`, trackID)
	if err != nil {
		return 0, 0, err
	}
	return c.ThumbsUp, c.ThumbsDown, nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
