package transport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/GavinPos/StarterDevices/log"
)

// SerialTransport drives the transmitter over a serial port.
// The transmitter resets when the port opens (DTR toggle), so Open
// waits a settle delay before the link is considered usable.
type SerialTransport struct {
	port        serial.Port
	portName    string
	readTimeout time.Duration
	pending     []byte
}

type SerialOption func(*serialConfig)

type serialConfig struct {
	baudRate    int
	readTimeout time.Duration
	settleDelay time.Duration
}

func WithBaudRate(rate int) SerialOption {
	return func(c *serialConfig) { c.baudRate = rate }
}

func WithReadTimeout(d time.Duration) SerialOption {
	return func(c *serialConfig) { c.readTimeout = d }
}

func WithSettleDelay(d time.Duration) SerialOption {
	return func(c *serialConfig) { c.settleDelay = d }
}

// DetectPort picks the transmitter port: the first USB serial adapter,
// preferring ports that look like an Arduino-style bridge.
func DetectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("listing serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB ||
			strings.Contains(p.Name, "ttyUSB") ||
			strings.Contains(p.Name, "ttyACM") {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("could not auto-detect the transmitter serial port")
}

// OpenSerial opens the transmitter link. An empty portName triggers
// auto-detection.
func OpenSerial(portName string, opts ...SerialOption) (*SerialTransport, error) {
	cfg := &serialConfig{
		baudRate:    115200,
		readTimeout: time.Second,
		settleDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if portName == "" {
		detected, err := DetectPort()
		if err != nil {
			return nil, err
		}
		portName = detected
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: cfg.baudRate})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(cfg.readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	log.Debug("serial port open",
		log.String("port", portName),
		log.Int("baud", cfg.baudRate))

	// give the transmitter time to come back after the open-reset
	time.Sleep(cfg.settleDelay)

	t := &SerialTransport{
		port:        port,
		portName:    portName,
		readTimeout: cfg.readTimeout,
	}
	t.resetBuffers()
	return t, nil
}

func (t *SerialTransport) resetBuffers() {
	_ = t.port.ResetInputBuffer()
	_ = t.port.ResetOutputBuffer()
	t.pending = nil
}

func (t *SerialTransport) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.resetBuffers()
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := t.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("writing to %s: %w", t.portName, err)
	}
	if err := t.port.Drain(); err != nil {
		return fmt.Errorf("flushing %s: %w", t.portName, err)
	}
	log.Debug("sent", log.String("line", strings.TrimSuffix(line, "\n")))
	return nil
}

func (t *SerialTransport) ReadLines(
	ctx context.Context,
	window time.Duration,
	fn func(line string) bool,
) error {
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok, err := t.readLine()
		if err != nil {
			return err
		}
		if !ok || line == "" {
			continue
		}
		log.Debug("received", log.String("line", line))
		if fn(line) {
			return nil
		}
	}
	return nil
}

// readLine returns the next complete newline-terminated line, if one
// arrives within the port read timeout.
func (t *SerialTransport) readLine() (string, bool, error) {
	for {
		if i := bytes.IndexByte(t.pending, '\n'); i >= 0 {
			line := strings.TrimRight(string(t.pending[:i]), "\r")
			t.pending = t.pending[i+1:]
			return line, true, nil
		}
		buf := make([]byte, 128)
		n, err := t.port.Read(buf)
		if err != nil {
			return "", false, fmt.Errorf("reading from %s: %w", t.portName, err)
		}
		if n == 0 {
			// read timeout, no data
			return "", false, nil
		}
		t.pending = append(t.pending, buf[:n]...)
	}
}

func (t *SerialTransport) Close() error {
	return t.port.Close()
}
