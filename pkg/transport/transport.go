// Package transport owns the physical link to the starter transmitter.
// The link is a half-duplex serial line speaking newline-terminated
// text commands; replies arrive as text lines as well.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrAckTimeout = errors.New("no acknowledgment from transmitter")

type Transport interface {
	// Send writes one command line (newline appended when missing).
	Send(ctx context.Context, line string) error
	// ReadLines feeds reply lines to fn until fn returns true or the
	// window elapses. Returning without fn having matched is not an
	// error; callers decide what a missing reply means.
	ReadLines(ctx context.Context, window time.Duration, fn func(line string) bool) error
	Close() error
}

// AwaitAck reads reply lines until the exact token arrives. The race is
// only considered fired once this returns nil.
func AwaitAck(ctx context.Context, t Transport, token string, window time.Duration) error {
	found := false
	err := t.ReadLines(ctx, window, func(line string) bool {
		if line == token {
			found = true
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q not received within %s", ErrAckTimeout, token, window)
	}
	return nil
}
