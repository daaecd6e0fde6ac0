package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiscoverReply(t *testing.T) {
	cases := []struct {
		line string
		dev  string
		ok   bool
	}{
		{"CHECK DEV03 ACKed", "03", true},
		{"CHECK DEV12 ACKED", "12", true},
		{"CHECK DEV03 NACK", "", false},
		{"FLASH DEV03 OK", "", false},
		{"noise", "", false},
		{"CHECK D ACKed", "", false},
	}
	for _, tc := range cases {
		dev, ok := ParseDiscoverReply(tc.line)
		assert.Equal(t, tc.ok, ok, tc.line)
		assert.Equal(t, tc.dev, dev, tc.line)
	}
}

func TestParseFlashReply(t *testing.T) {
	dev, ok, matched := ParseFlashReply("FLASH DEV07 OK")
	require.True(t, matched)
	assert.True(t, ok)
	assert.Equal(t, "07", dev)

	dev, ok, matched = ParseFlashReply("FLASH DEV07 FAIL")
	require.True(t, matched)
	assert.False(t, ok)
	assert.Equal(t, "07", dev)

	_, _, matched = ParseFlashReply("CHECK DEV07 ACKed")
	assert.False(t, matched)
}

func TestVolumeCommand(t *testing.T) {
	cmd, clamped := VolumeCommand(18)
	assert.Equal(t, "VOLUME:18", cmd)
	assert.False(t, clamped)

	cmd, clamped = VolumeCommand(45)
	assert.Equal(t, "VOLUME:30", cmd)
	assert.True(t, clamped)
}

// fakeTransport replays canned reply lines.
type fakeTransport struct {
	sent  []string
	lines []string
}

func (f *fakeTransport) Send(_ context.Context, line string) error {
	f.sent = append(f.sent, line)
	return nil
}

func (f *fakeTransport) ReadLines(
	_ context.Context, _ time.Duration, fn func(line string) bool,
) error {
	for _, l := range f.lines {
		if fn(l) {
			return nil
		}
	}
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func TestAwaitAck_TokenFound(t *testing.T) {
	ft := &fakeTransport{lines: []string{"armed", "countdown", "STARTTIMER"}}
	err := AwaitAck(context.Background(), ft, "STARTTIMER", time.Second)
	assert.NoError(t, err)
}

func TestAwaitAck_TokenMissing(t *testing.T) {
	ft := &fakeTransport{lines: []string{"armed"}}
	err := AwaitAck(context.Background(), ft, "STARTTIMER", time.Second)
	assert.ErrorIs(t, err, ErrAckTimeout)
}

func TestAwaitAck_ExactMatchOnly(t *testing.T) {
	ft := &fakeTransport{lines: []string{"STARTTIMER SOON", "xSTARTTIMER"}}
	err := AwaitAck(context.Background(), ft, "STARTTIMER", time.Second)
	assert.ErrorIs(t, err, ErrAckTimeout)
}
