package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

const (
	// maxResponseBytes caps how much of a collector reply is read.
	maxResponseBytes = 1 << 20

	defaultTimeout = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	Endpoint string
	Timeout  time.Duration
	Gzip     bool
	Encoder  Encoder
}

// Client posts incidents to the collector. Every call is a single attempt.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
	gzip       bool
	encoder    Encoder
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient creates a dispatcher client for the given collector endpoint.
func NewClient(opts Options, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: &http.Client{},
		endpoint:   opts.Endpoint,
		timeout:    opts.Timeout,
		gzip:       opts.Gzip,
		encoder:    opts.Encoder,
		logger:     log.Component("dispatcher"),
		now:        time.Now,
	}
}

// collectorResponse holds the identifier fields the collector may return.
type collectorResponse struct {
	MongoID interface{} `json:"_id"`
	ID      interface{} `json:"id"`
}

// Dispatch encodes the payload and posts it once. It never returns an error;
// failures are described by the result.
func (c *Client) Dispatch(ctx context.Context, payload dto.IncidentPayload) dto.DispatchResult {
	started := c.now()
	result := dto.DispatchResult{
		AttemptID:  uuid.NewString(),
		Labels:     payload.Labels,
		CapturedAt: payload.CapturedAt,
	}

	status, remoteID, err := c.post(ctx, result.AttemptID, payload)
	result.HTTPStatus = status
	result.RemoteID = remoteID
	result.Latency = c.now().Sub(started)

	if err != nil {
		result.Err = &DispatchError{AttemptID: result.AttemptID, Status: status, Cause: err}
		c.logger.Error("Failed to send incident %s %v: %v", result.AttemptID, payload.Labels, result.Err)
		return result
	}

	result.Success = true
	if remoteID == "" {
		remoteID = "N/A"
	}
	c.logger.Info("Incident %s sent in %s, labels %v, remote id %s", result.AttemptID, result.Latency.Round(time.Millisecond), payload.Labels, remoteID)
	return result
}

func (c *Client) post(ctx context.Context, attemptID string, payload dto.IncidentPayload) (int, string, error) {
	body, err := c.buildBody(payload)
	if err != nil {
		return 0, "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", attemptID)
	if c.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return 0, "", errors.Wrap(ctx.Err(), "dispatch aborted")
		case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
			return 0, "", errors.Wrapf(errTimeout, "no response within %s", c.timeout)
		default:
			return 0, "", errors.Wrap(err, "send request")
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, "", errors.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, "", errors.WithDetail(
			errors.Newf("unexpected status %s", resp.Status), string(raw))
	}

	return resp.StatusCode, remoteIDFrom(raw), nil
}

// buildBody renders the JSON request, gzip-compressed when enabled.
func (c *Client) buildBody(payload dto.IncidentPayload) ([]byte, error) {
	encoded, err := c.encoder.Encode(payload.Frame)
	if err != nil {
		return nil, err
	}

	labels := payload.Labels
	if labels == nil {
		labels = []string{}
	}
	req := dto.IncidentRequest{Image: encoded, Labels: labels}
	if loc := payload.Location; loc != nil {
		lat, lng := loc.Lat, loc.Lng
		req.Lat = &lat
		req.Lng = &lng
		req.LocationText = loc.Text
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal incident")
	}
	if !c.gzip {
		return data, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, errors.Wrap(err, "compress incident")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compress incident")
	}
	return buf.Bytes(), nil
}

// remoteIDFrom extracts "_id" or "id" from a collector reply. Bodies that are
// not JSON objects yield "".
func remoteIDFrom(raw []byte) string {
	var resp collectorResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	if id := stringify(resp.MongoID); id != "" {
		return id
	}
	return stringify(resp.ID)
}

func stringify(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
