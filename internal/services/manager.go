package services

import (
	"context"
	"sync"
	"time"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	"github.com/samriddhi-1111/GangaGuards/internal/metrics"
	"github.com/samriddhi-1111/GangaGuards/internal/services/confirmation"
	"github.com/samriddhi-1111/GangaGuards/internal/services/cooldown"
)

// Step reports what Process did with one sample.
type Step struct {
	State             State
	Signal            confirmation.Signal
	Action            Action
	CooldownRemaining time.Duration
}

// Options configures a Manager.
type Options struct {
	RequiredDuration time.Duration
	Cooldown         time.Duration
	Location         *dto.Location
	DetectorReady    bool // false when the model failed to load
}

// Manager is one watching session. It binds the confirmation timer, the
// cooldown gate and the dispatcher together. Process and Run must be called
// from a single goroutine; Status may be called from anywhere.
type Manager struct {
	timer     *confirmation.Timer
	gate      *cooldown.Gate
	submitter Submitter
	location  *dto.Location
	metrics   *metrics.Metrics
	events    EventPublisher
	logger    *logger.Logger
	now       func() time.Time

	state State

	statusMu sync.RWMutex
	status   Status
}

func NewManager(opts Options, submitter Submitter, m *metrics.Metrics, events EventPublisher, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	manager := &Manager{
		timer:     confirmation.NewTimer(opts.RequiredDuration),
		gate:      cooldown.NewGate(opts.Cooldown),
		submitter: submitter,
		location:  opts.Location,
		metrics:   m,
		events:    events,
		logger:    log.Component("session"),
		now:       time.Now,
	}
	manager.status = Status{
		State:         Idle.String(),
		StateSince:    manager.now(),
		Labels:        []string{},
		DetectorReady: opts.DetectorReady,
	}
	if !opts.DetectorReady {
		manager.logger.Error("Detection model is not loaded, no incident will ever be reported")
	}

	manager.logger.Info("🎬 Session ready - confirm after %s, cooldown %s", manager.timer.Required(), manager.gate.Interval())
	return manager
}

// Run pulls samples from src until ctx is cancelled or the source fails.
// Cancellation returns nil; a source failure returns a *SourceError.
func (m *Manager) Run(ctx context.Context, src Source) error {
	defer m.drainResults()

	for {
		sample, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.logger.Info("🛑 Session stopped")
				return nil
			}
			m.logger.Error("Detection source failed: %v", err)
			return &SourceError{Err: err}
		}

		m.drainResults()
		m.Process(ctx, sample)
	}
}

// Process feeds one sample through the timer and, once confirmed, the gate.
// The sample's capture time is the session clock.
func (m *Manager) Process(ctx context.Context, sample dto.DetectionSample) Step {
	now := sample.CapturedAt
	if now.IsZero() {
		now = m.now()
	}

	signal := m.timer.Observe(sample, now)
	m.metrics.ObserveSample(sample.HasLabels())
	step := Step{Signal: signal}
	next := m.state

	switch signal.Kind {
	case confirmation.None:
		next = Idle

	case confirmation.Pending:
		next = Watching
		m.logger.Debug("Waiting %.1fs for capture, %.1fs for cooldown",
			signal.Remaining().Seconds(), m.gate.Remaining(now).Seconds())

	case confirmation.Confirmed:
		m.metrics.Confirmed()
		next, step.Action = m.confirm(ctx, sample, now)
	}

	step.CooldownRemaining = m.gate.Remaining(now)
	step.State = next
	m.metrics.SetState(int(next), step.CooldownRemaining)
	m.updateStatus(sample, now, next, step)
	m.setState(next, sample.Labels, now)
	return step
}

// confirm acts on a confirmed run. The gate is recorded on every accepted
// attempt, whatever its outcome.
func (m *Manager) confirm(ctx context.Context, sample dto.DetectionSample, now time.Time) (State, Action) {
	if !m.gate.IsClear(now) {
		m.metrics.Suppressed()
		if m.state != Cooldown {
			m.logger.Info("Detection of %v confirmed, cooldown active for another %.1fs",
				sample.Labels, m.gate.Remaining(now).Seconds())
		}
		return Cooldown, Suppressed
	}

	payload := dto.NewIncidentPayload(sample, m.location)
	if !m.submitter.Submit(ctx, payload) {
		m.metrics.Rejected()
		m.logger.Warning("⚠️  Dispatcher busy - incident %v will be retried", payload.Labels)
		return Watching, Rejected
	}

	m.gate.Record(now)
	m.timer.Reset()
	m.logger.Info("📸 Incident confirmed: %v", payload.Labels)
	if m.events != nil {
		m.events.Publish("incident", map[string]interface{}{
			"labels":     payload.Labels,
			"capturedAt": payload.CapturedAt,
		})
	}
	return Idle, Dispatched
}

func (m *Manager) setState(next State, labels []string, now time.Time) {
	if next == m.state {
		return
	}
	m.logger.Debug("State %s -> %s", m.state, next)
	m.state = next
	if m.events != nil {
		m.events.Publish("state", map[string]interface{}{
			"state":  next.String(),
			"labels": labels,
			"at":     now,
		})
	}
}

// drainResults handles every finished dispatch without blocking.
func (m *Manager) drainResults() {
	if m.submitter == nil {
		return
	}
	for {
		select {
		case result := <-m.submitter.Results():
			m.handleResult(result)
		default:
			return
		}
	}
}

func (m *Manager) handleResult(result dto.DispatchResult) {
	m.metrics.ObserveDispatch(result.Success, result.Latency)
	summary := summarize(result)

	m.statusMu.Lock()
	if result.Success {
		m.status.Succeeded++
	} else {
		m.status.Failed++
	}
	m.status.LastResult = &summary
	m.statusMu.Unlock()

	if !result.Success {
		m.logger.Warning("Incident %s was not delivered: %s", result.AttemptID, result.ErrorMessage())
	}
	if m.events != nil {
		m.events.Publish("dispatch", summary)
	}
}

func (m *Manager) updateStatus(sample dto.DetectionSample, now time.Time, next State, step Step) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	s := &m.status
	if next != m.state {
		s.StateSince = now
	}
	s.State = next.String()
	s.Labels = append([]string{}, sample.Labels...)
	s.LastSampleAt = now
	s.Samples++
	if step.Signal.Kind == confirmation.Confirmed {
		s.Confirmations++
	}
	switch step.Action {
	case Dispatched:
		s.Submitted++
		at := now
		s.LastDispatchAt = &at
	case Suppressed:
		s.Suppressed++
	case Rejected:
		s.Rejected++
	}
	s.CooldownRemaining = step.CooldownRemaining.Seconds()
}

// Status returns a copy of the current session snapshot.
func (m *Manager) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()

	s := m.status
	s.Labels = append([]string{}, m.status.Labels...)
	if m.status.LastDispatchAt != nil {
		at := *m.status.LastDispatchAt
		s.LastDispatchAt = &at
	}
	if m.status.LastResult != nil {
		r := *m.status.LastResult
		s.LastResult = &r
	}
	return s
}

// State returns the current session state. Only safe on the session goroutine.
func (m *Manager) State() State {
	return m.state
}
