package confirmation

import (
	"time"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
)

// SignalKind is the verdict of the timer for a single sample.
type SignalKind int

const (
	None SignalKind = iota
	Pending
	Confirmed
)

func (k SignalKind) String() string {
	switch k {
	case None:
		return "none"
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Signal is returned by Observe. Elapsed and Required are only meaningful for
// Pending and Confirmed.
type Signal struct {
	Kind     SignalKind
	Elapsed  time.Duration
	Required time.Duration
}

// Remaining returns how long detection still has to persist.
func (s Signal) Remaining() time.Duration {
	if s.Elapsed >= s.Required {
		return 0
	}
	return s.Required - s.Elapsed
}

// Timer tracks how long a non-empty detection has persisted without a gap.
// It is owned by a single goroutine.
type Timer struct {
	required  time.Duration
	startedAt time.Time
	running   bool
}

// NewTimer creates a timer that confirms after required of uninterrupted detection.
func NewTimer(required time.Duration) *Timer {
	return &Timer{required: required}
}

// Observe feeds a sample observed at now into the timer.
//
// A confirmed run is not cleared here: the caller resets the timer once it
// has acted on the confirmation, so a confirmation that could not be acted on
// is reported again on the next sample.
func (t *Timer) Observe(sample dto.DetectionSample, now time.Time) Signal {
	if !sample.HasLabels() {
		t.Reset()
		return Signal{Kind: None}
	}

	if !t.running {
		t.startedAt = now
		t.running = true
		return Signal{Kind: Pending, Elapsed: 0, Required: t.required}
	}

	elapsed := now.Sub(t.startedAt)
	if elapsed < 0 {
		// Clock stepped backwards; restart the run from here.
		t.startedAt = now
		elapsed = 0
	}
	if elapsed >= t.required {
		return Signal{Kind: Confirmed, Elapsed: elapsed, Required: t.required}
	}
	return Signal{Kind: Pending, Elapsed: elapsed, Required: t.required}
}

// Reset forgets the current run.
func (t *Timer) Reset() {
	t.running = false
	t.startedAt = time.Time{}
}

// StartedAt returns the start of the current run, if any.
func (t *Timer) StartedAt() (time.Time, bool) {
	return t.startedAt, t.running
}

// Required returns the configured confirmation duration.
func (t *Timer) Required() time.Duration {
	return t.required
}
