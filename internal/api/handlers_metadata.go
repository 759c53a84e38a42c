package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FearlessSpiff/radio-calico/internal/metadata"
)

// MetadataHandler serves GET /api/metadata: the upstream now-playing
// document relayed byte for byte. The player polls this endpoint, so
// failures are soft; it retries on its own cycle.
func MetadataHandler(client *metadata.Client, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := client.Fetch(c.Request.Context())
		if err != nil {
			if errors.Is(err, metadata.ErrUpstreamTimeout) {
				log.Warnw("metadata fetch timed out", "error", err)
				respondError(c, http.StatusGatewayTimeout, "Metadata service timeout")
				return
			}
			log.Warnw("metadata fetch failed", "error", err)
			respondError(c, http.StatusInternalServerError, "Unable to fetch metadata")
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}
