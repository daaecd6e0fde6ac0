// Package wire encodes and parses the START command understood by the
// transmitter. One command carries the complete firing schedule; the
// transmitter owns real-time execution from there.
//
// Syntax:
//
//	START:<dev>{<red>,<orange>,<green>,<off>}[@<vol>];...;\n
//
// Device ids are two-character zero-padded, offsets are whole seconds
// from the earliest scheduled event, volume is optional 0..30. The
// trailing semicolon and newline terminate the command.
package wire

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

const (
	Prefix = "START:"
	// AckToken is printed by the transmitter once it begins the countdown.
	AckToken = "STARTTIMER"

	MinVolume = 0
	MaxVolume = 30
)

// Entry is one device's share of the command.
type Entry struct {
	Device string
	Red    int
	Orange int
	Green  int
	Off    int
	Volume *int // nil means no volume suffix
}

// Volumes holds the volume table: a per-device override beats the
// default, no entry at all means the suffix is omitted.
type Volumes struct {
	Default   *int
	PerDevice map[string]int
}

// ClampVolume forces v into [MinVolume,MaxVolume] and reports whether
// clamping happened.
func ClampVolume(v int) (int, bool) {
	if v < MinVolume {
		return MinVolume, true
	}
	if v > MaxVolume {
		return MaxVolume, true
	}
	return v, false
}

func (v Volumes) resolve(device string) (int, bool) {
	if vol, ok := v.PerDevice[device]; ok {
		return vol, true
	}
	if v.Default != nil {
		return *v.Default, true
	}
	return 0, false
}

// Encode serializes a device schedule. Devices are emitted in ascending
// id order so the output is deterministic; out-of-range volumes are
// clamped and reported as InvalidVolume.
func Encode(sched model.DeviceSchedule, vols Volumes) (string, []model.Diagnostic) {
	diags := make([]model.Diagnostic, 0)

	devices := make([]string, 0, len(sched))
	for dev := range sched {
		devices = append(devices, dev)
	}
	sort.Strings(devices)

	var sb strings.Builder
	sb.WriteString(Prefix)
	for _, dev := range devices {
		ts := sched[dev]
		fmt.Fprintf(&sb, "%s{%d,%d,%d,%d}",
			dev,
			roundSec(ts.RedOn), roundSec(ts.OrangeOn),
			roundSec(ts.GreenOn), roundSec(ts.Off))
		if vol, ok := vols.resolve(dev); ok {
			clamped, wasClamped := ClampVolume(vol)
			if wasClamped {
				diags = append(diags, model.Diagnostic{
					Kind:   model.InvalidVolume,
					Device: dev,
					Detail: fmt.Sprintf("volume %d for %s clamped to %d", vol, dev, clamped),
				})
			}
			fmt.Fprintf(&sb, "@%d", clamped)
		}
		sb.WriteString(";")
	}
	// the terminator is written even for an empty schedule
	if len(devices) == 0 {
		sb.WriteString(";")
	}
	sb.WriteString("\n")
	return sb.String(), diags
}

func roundSec(v float64) int {
	return int(math.Round(v))
}

var entryPattern = regexp.MustCompile(
	`^([0-9]{2})\{([0-9]+),([0-9]+),([0-9]+),([0-9]+)\}(?:@([0-9]+))?$`)

// Parse is the inverse of Encode. It accepts exactly the grammar above
// and returns the entries in command order.
func Parse(s string) ([]Entry, error) {
	s = strings.TrimSuffix(s, "\n")
	body, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return nil, fmt.Errorf("command does not begin with %q", Prefix)
	}
	if !strings.HasSuffix(body, ";") {
		return nil, fmt.Errorf("command is not terminated with ';'")
	}
	body = strings.TrimSuffix(body, ";")
	if body == "" {
		// an empty schedule is just the terminated prefix
		return []Entry{}, nil
	}

	parts := strings.Split(body, ";")
	entries := make([]Entry, 0, len(parts))
	for _, part := range parts {
		m := entryPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("malformed command entry %q", part)
		}
		e := Entry{Device: m[1]}
		e.Red, _ = strconv.Atoi(m[2])
		e.Orange, _ = strconv.Atoi(m[3])
		e.Green, _ = strconv.Atoi(m[4])
		e.Off, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			vol, _ := strconv.Atoi(m[6])
			if vol > MaxVolume {
				return nil, fmt.Errorf("volume %d out of range in entry %q", vol, part)
			}
			e.Volume = &vol
		}
		entries = append(entries, e)
	}
	return entries, nil
}
