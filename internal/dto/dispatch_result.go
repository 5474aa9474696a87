package dto

import "time"

// DispatchResult describes the outcome of one dispatch attempt.
type DispatchResult struct {
	AttemptID  string
	Success    bool
	RemoteID   string
	HTTPStatus int
	Err        error
	Labels     []string
	CapturedAt time.Time
	Latency    time.Duration
}

// ErrorMessage returns the failure detail, or "" on success.
func (r DispatchResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
