package ordr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/aswo/telemetry"
)

// State is a render job's lifecycle state.
type State int

const (
	StatePending State = iota
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reason says why a job failed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnreachable
	ReasonTimeout
	ReasonRejected
	ReasonConnectionLost
)

func (r Reason) String() string {
	switch r {
	case ReasonUnreachable:
		return "unreachable"
	case ReasonTimeout:
		return "timeout"
	case ReasonRejected:
		return "rejected"
	case ReasonConnectionLost:
		return "connection_lost"
	default:
		return "none"
	}
}

// Origin identifies where the finished render should be announced.
type Origin struct {
	Platform  string
	ChannelID string
	MessageID string
	UserID    string
}

// Job is one submitted render awaiting its push notification.
type Job struct {
	RenderID    int64
	Origin      Origin
	State       State
	VideoURL    string
	Reason      Reason
	ErrorCode   int
	SubmittedAt time.Time
	cause       error
}

// NewJob returns a pending job for an accepted submission.
func NewJob(sub Submission, origin Origin) Job {
	return Job{RenderID: sub.RenderID, Origin: origin, State: StatePending, SubmittedAt: time.Now()}
}

// Terminal reports whether the job is done or failed.
func (j *Job) Terminal() bool { return j.State != StatePending }

// Observe applies a push event. Events for other render ids and events arriving after a
// terminal state leave the job unchanged; the return value reports whether it changed.
func (j *Job) Observe(ev Event) bool {
	if j.Terminal() || ev.RenderID != j.RenderID {
		return false
	}
	switch ev.Kind {
	case EventRenderDone:
		j.State = StateDone
		j.VideoURL = ev.VideoURL
		return true
	case EventRenderFailed:
		j.State = StateFailed
		j.Reason = ReasonRejected
		j.ErrorCode = ev.ErrorCode
		j.cause = NewRenderRejected(ev.ErrorCode)
		return true
	}
	return false
}

// Fail moves a pending job to failed with reason. It is a no-op on terminal jobs.
func (j *Job) Fail(reason Reason, cause error) bool {
	if j.Terminal() {
		return false
	}
	j.State = StateFailed
	j.Reason = reason
	j.cause = cause
	return true
}

// Err returns the failure as an error, or nil unless the job failed. Timeouts wrap
// ErrTimeout, dropped channels wrap ErrConnectionLost, dial failures wrap ErrUnreachable,
// and farm errors are *RenderRejectedError.
func (j *Job) Err() error {
	if j.State != StateFailed {
		return nil
	}
	switch j.Reason {
	case ReasonRejected:
		var rr *RenderRejectedError
		if errors.As(j.cause, &rr) {
			return rr
		}
		return NewRenderRejected(j.ErrorCode)
	case ReasonTimeout:
		return ErrTimeout
	case ReasonUnreachable:
		if j.cause != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, j.cause)
		}
		return ErrUnreachable
	default:
		if j.cause != nil && !errors.Is(j.cause, ErrConnectionLost) {
			return fmt.Errorf("%w: %w", ErrConnectionLost, j.cause)
		}
		return ErrConnectionLost
	}
}

// Tracker opens one push-channel subscription per submitted job and waits for its outcome.
type Tracker struct {
	Dial    DialFunc
	Timeout time.Duration

	slots slots

	mu     sync.Mutex
	active map[int64]Job
}

// NewTracker returns a tracker dialing with dial, allowing maxConcurrent open listeners and
// failing jobs that see no notification within timeout.
func NewTracker(dial DialFunc, timeout time.Duration, maxConcurrent int) *Tracker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Tracker{Dial: dial, Timeout: timeout, slots: newSlots(maxConcurrent), active: make(map[int64]Job)}
}

// Track blocks until the job reaches a terminal state and returns it. The push channel is
// closed before Track returns, including when ctx is cancelled.
func (t *Tracker) Track(ctx context.Context, sub Submission, origin Origin) Job {
	job := NewJob(sub, origin)
	log := telemetry.LoggerWithCorr(ctx).With(slog.Int64("render_id", job.RenderID), slog.String("component", "ordr"))

	ctx, span := telemetry.StartSpan(ctx, "ordr", "render.wait")
	defer span.End()

	wctx, cancel := context.WithTimeoutCause(ctx, t.Timeout, ErrTimeout)
	defer cancel()

	t.put(job)
	defer t.remove(job.RenderID)

	if !t.slots.acquire(wctx) {
		job.Fail(t.ctxReason(wctx), context.Cause(wctx))
		return t.finish(log, job, span)
	}
	defer t.slots.release()
	telemetry.AddRenderWatchers(1)
	defer telemetry.AddRenderWatchers(-1)

	stream, err := t.Dial(wctx)
	if err != nil {
		reason := ReasonUnreachable
		if wctx.Err() != nil {
			reason = t.ctxReason(wctx)
		}
		job.Fail(reason, err)
		return t.finish(log, job, span)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Debug("render stream close", slog.Any("err", err))
		}
	}()

	for !job.Terminal() {
		ev, err := stream.Next(wctx)
		if err != nil {
			if wctx.Err() != nil {
				job.Fail(t.ctxReason(wctx), context.Cause(wctx))
			} else {
				job.Fail(ReasonConnectionLost, err)
			}
			break
		}
		if job.Observe(ev) {
			t.put(job)
		}
	}
	return t.finish(log, job, span)
}

func (t *Tracker) ctxReason(ctx context.Context) Reason {
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		return ReasonTimeout
	}
	return ReasonConnectionLost
}

func (t *Tracker) finish(log *slog.Logger, job Job, span trace.Span) Job {
	outcome := job.State.String()
	if job.State == StateFailed {
		outcome = job.Reason.String()
		telemetry.RecordError(span, job.Err())
		log.Warn("render job failed", slog.String("reason", outcome), slog.Int("error_code", job.ErrorCode), slog.Any("err", job.Err()))
	} else {
		log.Info("render job done", slog.String("video_url", job.VideoURL))
	}
	telemetry.CountRenderOutcome(outcome)
	telemetry.ObserveRenderWait(time.Since(job.SubmittedAt))
	return job
}

func (t *Tracker) put(job Job) {
	t.mu.Lock()
	t.active[job.RenderID] = job
	t.mu.Unlock()
}

func (t *Tracker) remove(id int64) {
	t.mu.Lock()
	delete(t.active, id)
	t.mu.Unlock()
}

// Active returns a snapshot of jobs still being watched, oldest first.
func (t *Tracker) Active() []Job {
	t.mu.Lock()
	out := make([]Job, 0, len(t.active))
	for _, j := range t.active {
		out = append(out, j)
	}
	t.mu.Unlock()
	sort.Slice(out, func(a, b int) bool { return out[a].SubmittedAt.Before(out[b].SubmittedAt) })
	return out
}

// Capacity returns open listeners and the configured maximum.
func (t *Tracker) Capacity() (inUse, limit int) {
	return t.slots.inUse(), t.slots.capacity()
}
