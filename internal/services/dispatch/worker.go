package dispatch

import (
	"context"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

// resultBuffer is how many finished results may wait for the session loop.
const resultBuffer = 16

// Dispatcher performs one dispatch attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload dto.IncidentPayload) dto.DispatchResult
}

// Worker runs dispatches in the background, one at a time and without a
// queue: a payload submitted while another is in flight is refused.
type Worker struct {
	dispatcher Dispatcher
	slot       chan struct{}
	jobs       chan dto.IncidentPayload
	results    chan dto.DispatchResult
	logger     *logger.Logger
}

// NewWorker creates a single-slot worker. Run must be started for submitted
// payloads to be sent.
func NewWorker(d Dispatcher, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		dispatcher: d,
		slot:       make(chan struct{}, 1),
		jobs:       make(chan dto.IncidentPayload, 1),
		results:    make(chan dto.DispatchResult, resultBuffer),
		logger:     log.Component("dispatch-worker"),
	}
}

// Submit hands the payload to the worker. It returns false without blocking
// when a dispatch is already in flight.
func (w *Worker) Submit(ctx context.Context, payload dto.IncidentPayload) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case w.slot <- struct{}{}:
		w.jobs <- payload
		return true
	default:
		return false
	}
}

// Busy reports whether a dispatch is in flight.
func (w *Worker) Busy() bool {
	return len(w.slot) > 0
}

// Results delivers finished attempts.
func (w *Worker) Results() <-chan dto.DispatchResult {
	return w.results
}

// Run processes submitted payloads until ctx is cancelled. An in-flight
// request is aborted with ctx.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Dispatch worker started")
	defer w.logger.Info("Dispatch worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-w.jobs:
			result := w.dispatcher.Dispatch(ctx, payload)
			<-w.slot
			publish(w.results, result, w.logger)
		}
	}
}

// Inline dispatches on the caller's goroutine. Submit blocks for at most the
// client timeout.
type Inline struct {
	dispatcher Dispatcher
	results    chan dto.DispatchResult
	logger     *logger.Logger
}

// NewInline creates a synchronous submitter.
func NewInline(d Dispatcher, log *logger.Logger) *Inline {
	if log == nil {
		log = logger.Nop()
	}
	return &Inline{
		dispatcher: d,
		results:    make(chan dto.DispatchResult, resultBuffer),
		logger:     log.Component("dispatch-inline"),
	}
}

// Submit sends the payload before returning. It always accepts.
func (i *Inline) Submit(ctx context.Context, payload dto.IncidentPayload) bool {
	publish(i.results, i.dispatcher.Dispatch(ctx, payload), i.logger)
	return true
}

// Results delivers finished attempts.
func (i *Inline) Results() <-chan dto.DispatchResult {
	return i.results
}

func publish(results chan dto.DispatchResult, result dto.DispatchResult, log *logger.Logger) {
	select {
	case results <- result:
	default:
		log.Warning("Dropping result of dispatch %s, nobody is reading results", result.AttemptID)
	}
}
