package race

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GavinPos/StarterDevices/pkg/model"
	"github.com/GavinPos/StarterDevices/pkg/wire"
)

type fakeTransport struct {
	sent    []string
	replies []string
	sendErr error
}

func (f *fakeTransport) Send(_ context.Context, line string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, line)
	return nil
}

func (f *fakeTransport) ReadLines(_ context.Context, _ time.Duration, fn func(string) bool) error {
	for _, line := range f.replies {
		if fn(line) {
			return nil
		}
	}
	return nil
}

func (f *fakeTransport) Close() error { return nil }

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(context.Context) error {
	f.calls++
	return f.err
}

func encodedContext(t *testing.T) *Context {
	t.Helper()
	rc := newTestContext(t)
	require.NoError(t, rc.Enter("A", "100", model.LaneIndex(1)))
	require.NoError(t, rc.Enter("B", "100", model.LaneIndex(2)))
	_, err := rc.ComputeHandicaps()
	require.NoError(t, err)
	_, err = rc.AssignLanes()
	require.NoError(t, err)
	_, _, err = rc.BuildSchedule()
	require.NoError(t, err)
	_, _, err = rc.EncodeCommand()
	require.NoError(t, err)
	return rc
}

func TestDispatch_HappyPath(t *testing.T) {
	rc := encodedContext(t)
	tr := &fakeTransport{replies: []string{"noise", wire.AckToken}}
	nt := &fakeNotifier{}
	dp := NewDispatcher(tr, nt, WithAckTimeout(time.Second))
	defer dp.Close()

	require.NoError(t, dp.Dispatch(context.Background(), rc))
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0], wire.Prefix)
	assert.Equal(t, 1, nt.calls)
	assert.Equal(t, StageDispatched, rc.Stage())
}

func TestDispatch_RefusesStaleContext(t *testing.T) {
	rc := newTestContext(t)
	tr := &fakeTransport{}
	dp := NewDispatcher(tr, &fakeNotifier{})
	defer dp.Close()

	err := dp.Dispatch(context.Background(), rc)
	assert.ErrorIs(t, err, model.ErrStaleSchedule)
	assert.Empty(t, tr.sent)
}

func TestDispatch_NoAckNoTrigger(t *testing.T) {
	rc := encodedContext(t)
	tr := &fakeTransport{replies: []string{"STARTTIMERS", "other"}}
	nt := &fakeNotifier{}
	dp := NewDispatcher(tr, nt, WithAckTimeout(10*time.Millisecond))
	defer dp.Close()

	err := dp.Dispatch(context.Background(), rc)
	assert.Error(t, err)
	assert.Equal(t, 0, nt.calls)
	assert.NotEqual(t, StageDispatched, rc.Stage())
}

func TestDispatch_SendFailure(t *testing.T) {
	rc := encodedContext(t)
	tr := &fakeTransport{sendErr: errors.New("port gone")}
	nt := &fakeNotifier{}
	dp := NewDispatcher(tr, nt)
	defer dp.Close()

	err := dp.Dispatch(context.Background(), rc)
	assert.Error(t, err)
	assert.Equal(t, 0, nt.calls)
}

func TestDispatch_TriggerFailureAfterAck(t *testing.T) {
	rc := encodedContext(t)
	tr := &fakeTransport{replies: []string{wire.AckToken}}
	nt := &fakeNotifier{err: errors.New("listener down")}
	dp := NewDispatcher(tr, nt)
	defer dp.Close()

	err := dp.Dispatch(context.Background(), rc)
	assert.Error(t, err)
	// the countdown is already running on the transmitter
	assert.Equal(t, StageDispatched, rc.Stage())
}

func TestDispatch_PublishesEvents(t *testing.T) {
	rc := encodedContext(t)
	tr := &fakeTransport{replies: []string{wire.AckToken}}
	dp := NewDispatcher(tr, &fakeNotifier{})
	defer dp.Close()

	events := dp.Events()
	got := make(chan []EventKind, 1)
	go func() {
		var kinds []EventKind
		for ev := range events {
			kinds = append(kinds, ev.Kind)
			if len(kinds) == 3 {
				break
			}
		}
		got <- kinds
	}()
	// give the collector a moment to subscribe
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, dp.Dispatch(context.Background(), rc))

	select {
	case kinds := <-got:
		assert.Equal(t, []EventKind{EventCommandSent, EventCountdownStarted, EventTriggerNotified}, kinds)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for lifecycle events")
	}
}
