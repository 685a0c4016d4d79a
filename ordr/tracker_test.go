package ordr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream replays events from a channel; a closed channel reads as a dropped connection.
type fakeStream struct {
	events chan Event
	closed atomic.Bool
}

func (f *fakeStream) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-f.events:
		if !ok {
			return Event{}, ErrConnectionLost
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (f *fakeStream) Close() error {
	f.closed.Store(true)
	return nil
}

func dialFake(f *fakeStream) DialFunc {
	return func(context.Context) (Stream, error) { return f, nil }
}

func TestJobObserve(t *testing.T) {
	job := NewJob(Submission{RenderID: 10}, Origin{})

	assert.False(t, job.Observe(Event{Kind: EventRenderDone, RenderID: 11, VideoURL: "other"}))
	assert.Equal(t, StatePending, job.State)

	assert.True(t, job.Observe(Event{Kind: EventRenderDone, RenderID: 10, VideoURL: "https://v/10"}))
	assert.Equal(t, StateDone, job.State)
	assert.Equal(t, "https://v/10", job.VideoURL)

	assert.False(t, job.Observe(Event{Kind: EventRenderFailed, RenderID: 10, ErrorCode: 5}), "terminal states are never revisited")
	assert.False(t, job.Fail(ReasonTimeout, nil))
	assert.Equal(t, StateDone, job.State)
	assert.NoError(t, job.Err())
}

func TestJobObserveFailure(t *testing.T) {
	job := NewJob(Submission{RenderID: 10}, Origin{})
	require.True(t, job.Observe(Event{Kind: EventRenderFailed, RenderID: 10, ErrorCode: 8}))

	var rr *RenderRejectedError
	require.True(t, errors.As(job.Err(), &rr))
	assert.Equal(t, 8, rr.Code)
	assert.Equal(t, ReasonRejected, job.Reason)
}

func TestTracker_DoneIgnoresOtherRenders(t *testing.T) {
	f := &fakeStream{events: make(chan Event, 3)}
	f.events <- Event{Kind: EventRenderDone, RenderID: 1, VideoURL: "https://v/1"}
	f.events <- Event{Kind: EventRenderDone, RenderID: 2, VideoURL: "https://v/2"}

	tr := NewTracker(dialFake(f), time.Second, 1)
	job := tr.Track(context.Background(), Submission{RenderID: 2}, Origin{Platform: "discord"})

	assert.Equal(t, StateDone, job.State)
	assert.Equal(t, "https://v/2", job.VideoURL)
	assert.True(t, f.closed.Load())
	assert.Empty(t, tr.Active())
}

func TestTracker_ConnectionLost(t *testing.T) {
	f := &fakeStream{events: make(chan Event)}
	close(f.events)

	job := NewTracker(dialFake(f), time.Second, 1).Track(context.Background(), Submission{RenderID: 3}, Origin{})
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, ReasonConnectionLost, job.Reason)
	assert.ErrorIs(t, job.Err(), ErrConnectionLost)
	assert.True(t, f.closed.Load())
}

func TestTracker_Timeout(t *testing.T) {
	f := &fakeStream{events: make(chan Event)}

	job := NewTracker(dialFake(f), 30*time.Millisecond, 1).Track(context.Background(), Submission{RenderID: 4}, Origin{})
	assert.Equal(t, ReasonTimeout, job.Reason)
	assert.ErrorIs(t, job.Err(), ErrTimeout)
	assert.True(t, f.closed.Load())
}

func TestTracker_Unreachable(t *testing.T) {
	dial := func(context.Context) (Stream, error) { return nil, errors.New("dial tcp: refused") }

	job := NewTracker(dial, time.Second, 1).Track(context.Background(), Submission{RenderID: 5}, Origin{})
	assert.Equal(t, ReasonUnreachable, job.Reason)
	assert.ErrorIs(t, job.Err(), ErrUnreachable)
}

func TestTracker_CancelClosesStream(t *testing.T) {
	f := &fakeStream{events: make(chan Event)}
	tr := NewTracker(dialFake(f), time.Minute, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Job)
	go func() { done <- tr.Track(ctx, Submission{RenderID: 6}, Origin{}) }()

	require.Eventually(t, func() bool { inUse, _ := tr.Capacity(); return inUse == 1 && len(tr.Active()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	job := <-done
	assert.Equal(t, ReasonConnectionLost, job.Reason)
	assert.True(t, f.closed.Load())
}

func TestTracker_BoundsConcurrentWatchers(t *testing.T) {
	f1 := &fakeStream{events: make(chan Event)}
	tr := NewTracker(dialFake(f1), time.Minute, 1)

	go tr.Track(context.Background(), Submission{RenderID: 1}, Origin{})
	require.Eventually(t, func() bool { inUse, _ := tr.Capacity(); return inUse == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	job := tr.Track(ctx, Submission{RenderID: 2}, Origin{})
	assert.Equal(t, StateFailed, job.State, "second watcher should not get a slot")

	f1.events <- Event{Kind: EventRenderDone, RenderID: 1}
	require.Eventually(t, func() bool { inUse, _ := tr.Capacity(); return inUse == 0 }, time.Second, 5*time.Millisecond)
}
