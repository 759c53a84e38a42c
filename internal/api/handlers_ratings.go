package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FearlessSpiff/radio-calico/internal/fingerprint"
	"github.com/FearlessSpiff/radio-calico/internal/models"
	"github.com/FearlessSpiff/radio-calico/internal/ratings"
)

// rateRequest is the POST /api/rate body. Rating is a pointer so a
// missing field is distinguishable from an explicit 0 (which means
// "remove my rating").
type rateRequest struct {
	TrackID string `json:"track_id"`
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	Rating  *int   `json:"rating"`
}

// GetRatingsHandler serves GET /api/ratings/:track_id.
func GetRatingsHandler(svc *ratings.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		trackID := c.Param("track_id")
		fp := fingerprint.Derive(c.ClientIP(), c.Request.UserAgent())

		sum, err := svc.Summary(c.Request.Context(), trackID, fp)
		if err != nil {
			log.Errorw("get ratings", "track_id", trackID, "error", err)
			respondError(c, http.StatusInternalServerError, "Unable to fetch ratings")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"thumbs_up":   sum.ThumbsUp,
			"thumbs_down": sum.ThumbsDown,
			"user_rating": sum.UserRating,
		})
	}
}

// RateHandler serves POST /api/rate.
func RateHandler(svc *ratings.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid data")
			return
		}
		if req.TrackID == "" || req.Artist == "" || req.Title == "" ||
			req.Rating == nil || !models.ValidValue(*req.Rating) {
			respondError(c, http.StatusBadRequest, "Invalid data")
			return
		}

		fp := fingerprint.Derive(c.ClientIP(), c.Request.UserAgent())
		res, err := svc.Rate(c.Request.Context(), ratings.Submission{
			TrackID:     req.TrackID,
			Artist:      req.Artist,
			Title:       req.Title,
			Fingerprint: fp,
			Value:       *req.Rating,
		})
		if err != nil {
			if errors.Is(err, ratings.ErrInvalidValue) {
				respondError(c, http.StatusBadRequest, "Invalid data")
				return
			}
			log.Errorw("rate track", "track_id", req.TrackID, "error", err)
			respondError(c, http.StatusInternalServerError, "Unable to save rating")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     actionMessage(res.Action),
			"thumbs_up":   res.ThumbsUp,
			"thumbs_down": res.ThumbsDown,
			"user_rating": res.UserRating,
		})
	}
}

func actionMessage(a ratings.Action) string {
	switch a {
	case ratings.ActionCreated:
		return "Thanks for rating!"
	case ratings.ActionUpdated:
		return "Rating updated successfully"
	case ratings.ActionUnchanged:
		return "Rating unchanged"
	case ratings.ActionRemoved:
		return "Rating removed successfully"
	default:
		return "No rating to remove"
	}
}
