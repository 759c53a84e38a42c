// Package store persists listener ratings. One table, one row per
// (track, fingerprint), backed by either SQLite or PostgreSQL depending
// on the database URL. Both backends enforce the single-rating invariant
// with a UNIQUE constraint rather than application logic, so concurrent
// first-ratings from one listener degrade to an update instead of a
// duplicate row or an error.
package store

import (
	"context"
	"strings"

	"github.com/FearlessSpiff/radio-calico/internal/models"
)

// RatingStore is the persistence contract for listener ratings.
// Handlers are backend-agnostic; Open picks the implementation from
// the database URL scheme.
type RatingStore interface {
	// GetRating returns the stored value for (trackID, fingerprint),
	// with found=false when the listener has not rated the track.
	GetRating(ctx context.Context, trackID, fingerprint string) (value int, found bool, err error)

	// UpsertRating inserts the rating or, when a row for the
	// (track_id, fingerprint) pair already exists, overwrites its
	// value in place. created_at is never touched on the update path.
	UpsertRating(ctx context.Context, r *models.Rating) error

	// DeleteRating removes the listener's rating for the track,
	// reporting whether a row actually existed.
	DeleteRating(ctx context.Context, trackID, fingerprint string) (deleted bool, err error)

	// CountRatings returns the track's thumbs-up and thumbs-down totals.
	CountRatings(ctx context.Context, trackID string) (thumbsUp, thumbsDown int, err error)

	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by databaseURL and ensures the
// schema exists. postgres:// and postgresql:// select PostgreSQL;
// everything else is treated as a SQLite location, optionally carrying
// a sqlite:// prefix.
func Open(databaseURL string) (RatingStore, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return openPostgres(databaseURL)
	}
	return openSQLite(sqlitePath(databaseURL))
}

// sqlitePath strips sqlite:// URL decoration down to a file path.
// Three slashes mean a relative path, four an absolute one; a bare
// path is passed through untouched.
func sqlitePath(databaseURL string) string {
	p := databaseURL
	if rest, ok := strings.CutPrefix(p, "sqlite://"); ok {
		p = strings.TrimPrefix(rest, "/")
	}
	if p == "" {
		p = "ratings.db"
	}
	return p
}
