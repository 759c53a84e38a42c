package models

import "time"

// Rating is one listener's thumbs up or down for one track.
// TrackID is produced client-side as a reversible encoding of
// artist + title; the server never decodes it and must treat it
// as an opaque string. Artist and title are denormalized onto the
// row purely for display convenience.
type Rating struct {
	ID          int64     `db:"id" json:"id"`
	TrackID     string    `db:"track_id" json:"track_id"`
	Artist      string    `db:"artist" json:"artist"`
	Title       string    `db:"title" json:"title"`
	Fingerprint string    `db:"fingerprint" json:"-"`
	Value       int       `db:"value" json:"value"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Rating values. Zero is never stored; submitting it removes an
// existing rating.
const (
	ThumbsUp   = 1
	ThumbsDown = -1
	NoRating   = 0
)

// ValidValue reports whether v is acceptable in a rating submission.
func ValidValue(v int) bool {
	return v == ThumbsUp || v == ThumbsDown || v == NoRating
}
