// Package ratings implements the thumbs up/down toggle over the store.
package ratings

import (
	"context"
	"errors"

	"github.com/FearlessSpiff/radio-calico/internal/metrics"
	"github.com/FearlessSpiff/radio-calico/internal/models"
	"github.com/FearlessSpiff/radio-calico/internal/store"
)

// Action names what a submission did to the stored rating.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionRemoved   Action = "removed"
	ActionNone      Action = "none" // asked to remove, nothing was stored
)

// ErrInvalidValue rejects submissions outside {-1, 0, 1}.
var ErrInvalidValue = errors.New("rating value must be -1, 0 or 1")

// Submission is one listener's vote for one track.
type Submission struct {
	TrackID     string
	Artist      string
	Title       string
	Fingerprint string
	Value       int
}

// Result reports the outcome of a submission together with the track's
// recomputed totals and the listener's rating after the change.
type Result struct {
	Action     Action
	ThumbsUp   int
	ThumbsDown int
	UserRating int
}

// Summary is the current state of a track for one listener.
// UserRating is 0 when the listener has not rated the track.
type Summary struct {
	ThumbsUp   int
	ThumbsDown int
	UserRating int
}

type Service struct {
	store store.RatingStore
}

func NewService(st store.RatingStore) *Service {
	return &Service{store: st}
}

// Rate applies a submission. Zero removes any stored rating, a repeat
// of the stored value changes nothing, and any other value is written
// in place. Every path returns fresh totals.
func (s *Service) Rate(ctx context.Context, sub Submission) (*Result, error) {
	if !models.ValidValue(sub.Value) {
		return nil, ErrInvalidValue
	}

	var action Action
	if sub.Value == models.NoRating {
		deleted, err := s.store.DeleteRating(ctx, sub.TrackID, sub.Fingerprint)
		if err != nil {
			return nil, err
		}
		action = ActionNone
		if deleted {
			action = ActionRemoved
		}
	} else {
		current, found, err := s.store.GetRating(ctx, sub.TrackID, sub.Fingerprint)
		if err != nil {
			return nil, err
		}
		switch {
		case found && current == sub.Value:
			// Same vote again. Nothing to write, created_at stays put.
			action = ActionUnchanged
		case found:
			action = ActionUpdated
		default:
			action = ActionCreated
		}
		if action != ActionUnchanged {
			err := s.store.UpsertRating(ctx, &models.Rating{
				TrackID:     sub.TrackID,
				Artist:      sub.Artist,
				Title:       sub.Title,
				Fingerprint: sub.Fingerprint,
				Value:       sub.Value,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	up, down, err := s.store.CountRatings(ctx, sub.TrackID)
	if err != nil {
		return nil, err
	}

	userRating := sub.Value
	if action == ActionRemoved || action == ActionNone {
		userRating = models.NoRating
	}

	metrics.RatingActions.WithLabelValues(string(action)).Inc()

	return &Result{
		Action:     action,
		ThumbsUp:   up,
		ThumbsDown: down,
		UserRating: userRating,
	}, nil
}

// Summary returns the track's totals and the listener's own rating.
func (s *Service) Summary(ctx context.Context, trackID, fingerprint string) (*Summary, error) {
	value, _, err := s.store.GetRating(ctx, trackID, fingerprint)
	if err != nil {
		return nil, err
	}
	up, down, err := s.store.CountRatings(ctx, trackID)
	if err != nil {
		return nil, err
	}
	return &Summary{ThumbsUp: up, ThumbsDown: down, UserRating: value}, nil
}
