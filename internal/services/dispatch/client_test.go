package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server, opts Options) *Client {
	opts.Endpoint = server.URL + "/api/incidents/ml"
	c := NewClient(opts, logger.Nop())
	c.httpClient = server.Client()
	return c
}

func testFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	return img
}

func testPayload() dto.IncidentPayload {
	return dto.NewIncidentPayload(dto.DetectionSample{
		Labels:     []string{"plastic-bottle", "bag", "plastic-bottle"},
		CapturedAt: time.Date(2025, 6, 15, 14, 30, 3, 0, time.UTC),
		Frame:      testFrame(64, 48),
	}, &dto.Location{Lat: 25.285217, Lng: 82.790942, Text: "Assi Ghat"})
}

func decodeRequest(t *testing.T, r *http.Request) dto.IncidentRequest {
	t.Helper()
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		defer zr.Close()
		body = zr
	}
	var req dto.IncidentRequest
	require.NoError(t, json.NewDecoder(body).Decode(&req))
	return req
}

func TestDispatch_Created(t *testing.T) {
	requestIDs := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/incidents/ml", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Content-Encoding"))
		requestIDs <- r.Header.Get("X-Request-ID")

		req := decodeRequest(t, r)
		assert.ElementsMatch(t, []string{"bag", "plastic-bottle"}, req.Labels)
		require.NotNil(t, req.Lat)
		require.NotNil(t, req.Lng)
		assert.Equal(t, 25.285217, *req.Lat)
		assert.Equal(t, 82.790942, *req.Lng)
		assert.Equal(t, "Assi Ghat", req.LocationText)

		raw, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, 64, cfg.Width)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"_id":"665f1c2e9b1d","status":"pending"}`))
	}))
	defer server.Close()

	result := newTestClient(server, Options{}).Dispatch(context.Background(), testPayload())

	require.True(t, result.Success, "error: %v", result.Err)
	assert.Equal(t, http.StatusCreated, result.HTTPStatus)
	assert.Equal(t, "665f1c2e9b1d", result.RemoteID)
	assert.Equal(t, <-requestIDs, result.AttemptID)
	_, err := uuid.Parse(result.AttemptID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"bag", "plastic-bottle"}, result.Labels)
}

func TestDispatch_OKWithNumericID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 42})
	}))
	defer server.Close()

	result := newTestClient(server, Options{}).Dispatch(context.Background(), testPayload())

	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, "42", result.RemoteID)
}

func TestDispatch_NoLocationOmitsCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		assert.NotContains(t, fields, "lat")
		assert.NotContains(t, fields, "lng")
		assert.NotContains(t, fields, "locationText")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	payload := testPayload()
	payload.Location = nil
	result := newTestClient(server, Options{}).Dispatch(context.Background(), payload)

	assert.True(t, result.Success)
	assert.Empty(t, result.RemoteID)
}

func TestDispatch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collector unavailable", http.StatusInternalServerError)
	}))
	defer server.Close()

	result := newTestClient(server, Options{}).Dispatch(context.Background(), testPayload())

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus)
	var dispatchErr *DispatchError
	require.True(t, errors.As(result.Err, &dispatchErr))
	assert.Equal(t, http.StatusInternalServerError, dispatchErr.Status)
	assert.Equal(t, result.AttemptID, dispatchErr.AttemptID)
	assert.False(t, IsTimeout(result.Err))
}

func TestDispatch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	result := newTestClient(server, Options{Timeout: 50 * time.Millisecond}).Dispatch(context.Background(), testPayload())

	assert.False(t, result.Success)
	assert.Zero(t, result.HTTPStatus)
	assert.True(t, IsTimeout(result.Err), "expected timeout, got %v", result.Err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatch_CancelledContext(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := newTestClient(server, Options{}).Dispatch(ctx, testPayload())

	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, context.Canceled))
	assert.False(t, IsTimeout(result.Err))
	assert.Zero(t, hits.Load())
}

func TestDispatch_Gzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		req := decodeRequest(t, r)
		assert.Equal(t, []string{"bag", "plastic-bottle"}, req.Labels)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	result := newTestClient(server, Options{Gzip: true}).Dispatch(context.Background(), testPayload())

	assert.True(t, result.Success, "error: %v", result.Err)
}

func TestDispatch_MissingFrame(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	payload := testPayload()
	payload.Frame = nil
	result := newTestClient(server, Options{}).Dispatch(context.Background(), payload)

	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, ErrNoFrame))
	assert.Zero(t, hits.Load())
}

func TestRemoteIDFrom(t *testing.T) {
	tests := []struct {
		body     string
		expected string
	}{
		{`{"_id":"a1","id":"b2"}`, "a1"},
		{`{"id":"b2"}`, "b2"},
		{`{"id":7}`, "7"},
		{`{"_id":null}`, ""},
		{`created`, ""},
		{``, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, remoteIDFrom([]byte(tt.body)), "body %q", tt.body)
	}
}
