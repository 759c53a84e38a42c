package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FearlessSpiff/radio-calico/internal/api"
	"github.com/FearlessSpiff/radio-calico/internal/config"
	"github.com/FearlessSpiff/radio-calico/internal/logger"
	"github.com/FearlessSpiff/radio-calico/internal/metadata"
	"github.com/FearlessSpiff/radio-calico/internal/ratings"
	"github.com/FearlessSpiff/radio-calico/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type routerOpts struct {
	upstreamURL string
	timeout     time.Duration
	rps         float64
	burst       int
	staticDir   string
}

func newTestRouter(t *testing.T, o routerOpts) *gin.Engine {
	t.Helper()

	st, err := store.Open("sqlite:///" + filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	if o.timeout == 0 {
		o.timeout = time.Second
	}
	if o.staticDir == "" {
		o.staticDir = filepath.Join(t.TempDir(), "absent")
	}

	cfg := &config.Config{
		Port:            "8080",
		MetadataURL:     o.upstreamURL,
		MetadataTimeout: o.timeout,
		BuildVersion:    "test-build",
		StaticDir:       o.staticDir,
		LogMode:         "development",
		RateLimitRPS:    o.rps,
		RateLimitBurst:  o.burst,
		CORSOrigins:     []string{"*"},
	}

	return api.NewRouter(api.Deps{
		Log:      logger.Nop(),
		Cfg:      cfg,
		Ratings:  ratings.NewService(st),
		Metadata: metadata.NewClient(cfg.MetadataURL, cfg.MetadataTimeout),
	})
}

// do sends a request through the router. The User-Agent stands in for
// the listener identity; httptest gives every request the same client
// address, so distinct agents mean distinct fingerprints.
func do(r *gin.Engine, method, target, userAgent string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type rateResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ThumbsUp   int    `json:"thumbs_up"`
	ThumbsDown int    `json:"thumbs_down"`
	UserRating int    `json:"user_rating"`
}

type ratingsResponse struct {
	ThumbsUp   int `json:"thumbs_up"`
	ThumbsDown int `json:"thumbs_down"`
	UserRating int `json:"user_rating"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func stubUpstream(t *testing.T, doc string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rateBody(track string, value int) gin.H {
	return gin.H{"track_id": track, "artist": "Cat Power", "title": "Metal Heart", "rating": value}
}

// TestRateLifecycle walks one listener through the whole voting cycle
// against a fresh store, checking messages and counts at each step.
func TestRateLifecycle(t *testing.T) {
	upstream := stubUpstream(t, `{}`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	const (
		track     = "QQ=="
		listenerA = "player-a/1.0"
	)

	// First vote says thanks.
	w := do(r, http.MethodPost, "/api/rate", listenerA, rateBody(track, 1))
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[rateResponse](t, w)
	assert.True(t, res.Success)
	assert.Contains(t, strings.ToLower(res.Message), "thank")
	assert.Equal(t, 1, res.ThumbsUp)
	assert.Equal(t, 0, res.ThumbsDown)
	assert.Equal(t, 1, res.UserRating)

	w = do(r, http.MethodGet, "/api/ratings/"+track, listenerA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[ratingsResponse](t, w)
	assert.Equal(t, ratingsResponse{ThumbsUp: 1, ThumbsDown: 0, UserRating: 1}, got)

	// Same vote again changes nothing.
	w = do(r, http.MethodPost, "/api/rate", listenerA, rateBody(track, 1))
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[rateResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "Rating unchanged", res.Message)
	assert.Equal(t, 1, res.ThumbsUp)
	assert.Equal(t, 0, res.ThumbsDown)

	// Flip to thumbs down.
	w = do(r, http.MethodPost, "/api/rate", listenerA, rateBody(track, -1))
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[rateResponse](t, w)
	assert.Equal(t, "Rating updated successfully", res.Message)
	assert.Equal(t, 0, res.ThumbsUp)
	assert.Equal(t, 1, res.ThumbsDown)
	assert.Equal(t, -1, res.UserRating)

	// Zero clears the vote.
	w = do(r, http.MethodPost, "/api/rate", listenerA, rateBody(track, 0))
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[rateResponse](t, w)
	assert.Equal(t, "Rating removed successfully", res.Message)
	assert.Equal(t, 0, res.ThumbsUp)
	assert.Equal(t, 0, res.ThumbsDown)
	assert.Equal(t, 0, res.UserRating)

	// Clearing again is a polite no-op.
	w = do(r, http.MethodPost, "/api/rate", listenerA, rateBody(track, 0))
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[rateResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "No rating to remove", res.Message)
}

func TestRatingsAreScopedToFingerprint(t *testing.T) {
	upstream := stubUpstream(t, `{}`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	do(r, http.MethodPost, "/api/rate", "player-a/1.0", rateBody("t1", 1))
	do(r, http.MethodPost, "/api/rate", "player-b/2.0", rateBody("t1", -1))

	// Listener B sees both totals but only their own vote.
	w := do(r, http.MethodGet, "/api/ratings/t1", "player-b/2.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[ratingsResponse](t, w)
	assert.Equal(t, ratingsResponse{ThumbsUp: 1, ThumbsDown: 1, UserRating: -1}, got)

	// A third listener has no vote at all.
	w = do(r, http.MethodGet, "/api/ratings/t1", "player-c/3.0", nil)
	got = decode[ratingsResponse](t, w)
	assert.Equal(t, ratingsResponse{ThumbsUp: 1, ThumbsDown: 1, UserRating: 0}, got)
}

func TestRateRejectsBadInput(t *testing.T) {
	upstream := stubUpstream(t, `{}`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	cases := []struct {
		name string
		body gin.H
	}{
		{"value out of range", gin.H{"track_id": "t1", "artist": "a", "title": "t", "rating": 5}},
		{"missing rating", gin.H{"track_id": "t1", "artist": "a", "title": "t"}},
		{"missing track_id", gin.H{"artist": "a", "title": "t", "rating": 1}},
		{"missing artist", gin.H{"track_id": "t1", "title": "t", "rating": 1}},
		{"missing title", gin.H{"track_id": "t1", "artist": "a", "rating": 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/rate", "player-a/1.0", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var res rateResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.False(t, res.Success)
			assert.Equal(t, "Invalid data", res.Message)
		})
	}

	// Unparseable body.
	req := httptest.NewRequest(http.MethodPost, "/api/rate", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// None of the rejects left state behind.
	w = do(r, http.MethodGet, "/api/ratings/t1", "player-a/1.0", nil)
	got := decode[ratingsResponse](t, w)
	assert.Equal(t, ratingsResponse{}, got)
}

func TestMetadataRelay(t *testing.T) {
	const doc = `{"artist":"Cat Power","title":"Metal Heart","bit_depth":24,"sample_rate":48000}`
	upstream := stubUpstream(t, doc)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	w := do(r, http.MethodGet, "/api/metadata", "player-a/1.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, doc, w.Body.String(), "document must be relayed verbatim")
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestMetadataUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cdn unhappy", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})
	w := do(r, http.MethodGet, "/api/metadata", "player-a/1.0", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	res := decode[rateResponse](t, w)
	assert.False(t, res.Success)
	assert.Equal(t, "Unable to fetch metadata", res.Message)
}

func TestMetadataUpstreamMalformed(t *testing.T) {
	upstream := stubUpstream(t, `{"artist": "Cat Pow`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	w := do(r, http.MethodGet, "/api/metadata", "player-a/1.0", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetadataUpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer upstream.Close()
	defer close(release)

	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL, timeout: 30 * time.Millisecond})
	w := do(r, http.MethodGet, "/api/metadata", "player-a/1.0", nil)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	res := decode[rateResponse](t, w)
	assert.False(t, res.Success)
	assert.Equal(t, "Metadata service timeout", res.Message)
}

func TestHealth(t *testing.T) {
	upstream := stubUpstream(t, `{}`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	w := do(r, http.MethodGet, "/health", "probe/1.0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "test-build", res.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	upstream := stubUpstream(t, `{}`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL})

	// Generate one rating so the action counter has a series.
	do(r, http.MethodPost, "/api/rate", "player-a/1.0", rateBody("t1", 1))

	w := do(r, http.MethodGet, "/metrics", "prometheus/2.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rating_actions_total")
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestStaticServing(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>radio</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.css"), []byte("body{}"), 0644))

	upstream := stubUpstream(t, `{}`)
	r := newTestRouter(t, routerOpts{upstreamURL: upstream.URL, staticDir: staticDir})

	w := do(r, http.MethodGet, "/", "player-a/1.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "radio")
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	w = do(r, http.MethodGet, "/static/app.css", "player-a/1.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=31536000", w.Header().Get("Cache-Control"))
}
