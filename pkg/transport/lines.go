package transport

import (
	"fmt"
	"strings"

	"github.com/GavinPos/StarterDevices/pkg/model"
	"github.com/GavinPos/StarterDevices/pkg/wire"
)

// Transmitter line commands besides START.
const (
	CmdDiscover = "DISCOVER"
	CmdFlash    = "FLASH"
)

// VolumeCommand builds a VOLUME line, clamping into the valid range.
// The bool reports whether clamping happened.
func VolumeCommand(v int) (string, bool) {
	clamped, wasClamped := wire.ClampVolume(v)
	return fmt.Sprintf("VOLUME:%d", clamped), wasClamped
}

// ParseDiscoverReply extracts the device id from a "CHECK DEV03 ACKed"
// line. Non-matching lines return false.
func ParseDiscoverReply(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "CHECK" || !strings.EqualFold(fields[2], "ACKED") {
		return "", false
	}
	addr := fields[1]
	if len(addr) < 2 {
		return "", false
	}
	dev, err := model.NormalizeDeviceID(addr[len(addr)-2:])
	if err != nil {
		return "", false
	}
	return dev, true
}

// ParseFlashReply extracts device id and outcome from a
// "FLASH DEV03 OK" / "FLASH DEV03 FAIL" line.
func ParseFlashReply(line string) (dev string, ok, matched bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "FLASH" {
		return "", false, false
	}
	addr := fields[1]
	if len(addr) < 2 {
		return "", false, false
	}
	dev, err := model.NormalizeDeviceID(addr[len(addr)-2:])
	if err != nil {
		return "", false, false
	}
	return dev, strings.EqualFold(fields[2], "OK"), true
}
