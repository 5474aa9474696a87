package services

import (
	"context"
	"time"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
)

// State is where the session is in the detection cycle.
type State int

const (
	// Idle: nothing is being tracked.
	Idle State = iota
	// Watching: a detection run is in progress but not yet confirmed.
	Watching
	// Cooldown: a run is confirmed but the cooldown has not elapsed. The
	// gate is checked again on every sample.
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Watching:
		return "watching"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Action is what the session did with a sample.
type Action int

const (
	NoAction Action = iota
	// Dispatched: an incident was handed to the dispatcher.
	Dispatched
	// Suppressed: confirmed, held back by the cooldown.
	Suppressed
	// Rejected: confirmed and clear, but the dispatcher was busy.
	Rejected
)

func (a Action) String() string {
	switch a {
	case NoAction:
		return "none"
	case Dispatched:
		return "dispatched"
	case Suppressed:
		return "suppressed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Source produces detection samples. Next blocks until a sample is ready or
// ctx is done.
type Source interface {
	Next(ctx context.Context) (dto.DetectionSample, error)
	Close() error
}

// Submitter accepts incidents for dispatch. Submit returns false when the
// incident was not taken.
type Submitter interface {
	Submit(ctx context.Context, payload dto.IncidentPayload) bool
	Results() <-chan dto.DispatchResult
}

// EventPublisher receives session events for live subscribers.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// SourceError wraps a failure of the detection source. It ends the session.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return "detection source: " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ResultSummary is the reportable view of a dispatch result.
type ResultSummary struct {
	AttemptID  string    `json:"attemptId"`
	Success    bool      `json:"success"`
	RemoteID   string    `json:"remoteId,omitempty"`
	HTTPStatus int       `json:"httpStatus,omitempty"`
	Error      string    `json:"error,omitempty"`
	Labels     []string  `json:"labels"`
	CapturedAt time.Time `json:"capturedAt"`
	LatencyMs  int64     `json:"latencyMs"`
}

func summarize(r dto.DispatchResult) ResultSummary {
	return ResultSummary{
		AttemptID:  r.AttemptID,
		Success:    r.Success,
		RemoteID:   r.RemoteID,
		HTTPStatus: r.HTTPStatus,
		Error:      r.ErrorMessage(),
		Labels:     r.Labels,
		CapturedAt: r.CapturedAt,
		LatencyMs:  r.Latency.Milliseconds(),
	}
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	State             string         `json:"state"`
	DetectorReady     bool           `json:"detectorReady"`
	StateSince        time.Time      `json:"stateSince"`
	Labels            []string       `json:"labels"`
	LastSampleAt      time.Time      `json:"lastSampleAt"`
	Samples           int64          `json:"samples"`
	Confirmations     int64          `json:"confirmations"`
	Submitted         int64          `json:"submitted"`
	Suppressed        int64          `json:"suppressed"`
	Rejected          int64          `json:"rejected"`
	Succeeded         int64          `json:"succeeded"`
	Failed            int64          `json:"failed"`
	LastDispatchAt    *time.Time     `json:"lastDispatchAt,omitempty"`
	CooldownRemaining float64        `json:"cooldownRemainingSeconds"`
	LastResult        *ResultSummary `json:"lastResult,omitempty"`
}
