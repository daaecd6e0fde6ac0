// Package trigger notifies the timing capture process that the
// countdown has started. The listener is a separate local process; the
// payload is a single datagram it polls for.
package trigger

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/GavinPos/StarterDevices/log"
)

const (
	DefaultAddr    = "127.0.0.1:6000"
	DefaultPayload = "s"

	defaultAttempts = 5
	defaultBackoff  = 50 * time.Millisecond
	writeTimeout    = 200 * time.Millisecond
)

type Notifier struct {
	addr     string
	payload  []byte
	attempts int
	backoff  time.Duration
	clock    clockwork.Clock
	send     func(ctx context.Context) error
}

type Option func(*Notifier)

func WithPayload(p []byte) Option {
	return func(n *Notifier) { n.payload = p }
}

func WithAttempts(a int) Option {
	return func(n *Notifier) { n.attempts = a }
}

func WithBackoff(d time.Duration) Option {
	return func(n *Notifier) { n.backoff = d }
}

func WithClock(c clockwork.Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

func New(addr string, opts ...Option) *Notifier {
	if addr == "" {
		addr = DefaultAddr
	}
	n := &Notifier{
		addr:     addr,
		payload:  []byte(DefaultPayload),
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.send == nil {
		n.send = n.sendUDP
	}
	return n
}

// Notify sends the trigger payload, retrying a handful of times with a
// brief fixed backoff before giving up. It never blocks the countdown:
// callers invoke it only after the transmitter acknowledged.
func (n *Notifier) Notify(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		if err := n.send(ctx); err == nil {
			log.Debug("trigger sent",
				log.String("addr", n.addr), log.Int("attempt", attempt))
			return nil
		} else {
			lastErr = err
			log.Warn("trigger attempt failed",
				log.Int("attempt", attempt), log.ErrorField(err))
		}
		if attempt < n.attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-n.clock.After(n.backoff):
			}
		}
	}
	return fmt.Errorf("trigger not delivered to %s after %d attempts: %w",
		n.addr, n.attempts, lastErr)
}

func (n *Notifier) sendUDP(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", n.addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", n.addr, err)
	}
	defer conn.Close()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if _, err := conn.Write(n.payload); err != nil {
		return fmt.Errorf("sending trigger: %w", err)
	}
	return nil
}
