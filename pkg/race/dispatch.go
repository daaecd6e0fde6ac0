package race

import (
	"context"
	"fmt"
	"time"

	"github.com/GavinPos/StarterDevices/log"
	"github.com/GavinPos/StarterDevices/pkg/transport"
	"github.com/GavinPos/StarterDevices/pkg/utils/broadcast"
	"github.com/GavinPos/StarterDevices/pkg/wire"
)

type EventKind int

const (
	EventCommandSent EventKind = iota
	EventCountdownStarted
	EventTriggerNotified
	EventTriggerFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCommandSent:
		return "CommandSent"
	case EventCountdownStarted:
		return "CountdownStarted"
	case EventTriggerNotified:
		return "TriggerNotified"
	case EventTriggerFailed:
		return "TriggerFailed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

type Event struct {
	Kind    EventKind
	Command string
	Err     error
}

// Notifier is what the dispatcher needs from the timing trigger.
type Notifier interface {
	Notify(ctx context.Context) error
}

// Dispatcher sends the encoded command and runs the post-ack steps.
type Dispatcher struct {
	transport  transport.Transport
	notifier   Notifier
	ackTimeout time.Duration
	events     chan Event
	broadcast  broadcast.BroadcastServer[Event]
	logger     *log.Logger
}

type DispatcherOption func(*Dispatcher)

func WithAckTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.ackTimeout = d }
}

func WithLogger(l *log.Logger) DispatcherOption {
	return func(dp *Dispatcher) { dp.logger = l }
}

func NewDispatcher(t transport.Transport, n Notifier, opts ...DispatcherOption) *Dispatcher {
	dp := &Dispatcher{
		transport:  t,
		notifier:   n,
		ackTimeout: 10 * time.Second,
		events:     make(chan Event),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(dp)
	}
	dp.broadcast = broadcast.NewBroadcastServer("race-events", dp.events)
	return dp
}

// Events lets observers follow the dispatch lifecycle.
func (dp *Dispatcher) Events() <-chan Event {
	return dp.broadcast.Subscribe()
}

func (dp *Dispatcher) Close() {
	dp.broadcast.Close()
}

func (dp *Dispatcher) publish(ev Event) {
	select {
	case dp.events <- ev:
	case <-time.After(50 * time.Millisecond):
	}
}

// Dispatch writes the command, waits for the transmitter's ack and only
// then fires the timing trigger. The context is marked Dispatched on
// ack; a trigger failure is surfaced but the race has already started.
func (dp *Dispatcher) Dispatch(ctx context.Context, rc *Context) error {
	cmd, err := rc.Command()
	if err != nil {
		return err
	}
	dp.logger.Info("dispatching start command", log.String("command", cmd))
	if err := dp.transport.Send(ctx, cmd); err != nil {
		return fmt.Errorf("sending start command: %w", err)
	}
	dp.publish(Event{Kind: EventCommandSent, Command: cmd})

	if err := transport.AwaitAck(ctx, dp.transport, wire.AckToken, dp.ackTimeout); err != nil {
		return err
	}
	rc.markDispatched()
	dp.logger.Info("transmitter acknowledged, countdown running")
	dp.publish(Event{Kind: EventCountdownStarted, Command: cmd})

	if err := dp.notifier.Notify(ctx); err != nil {
		dp.logger.Error("timing trigger failed", log.ErrorField(err))
		dp.publish(Event{Kind: EventTriggerFailed, Err: err})
		return fmt.Errorf("timing trigger: %w", err)
	}
	dp.publish(Event{Kind: EventTriggerNotified})
	return nil
}
