package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Lane identifies where an entry starts within a start point.
// Laned events use a 1-based index, scratch events use ScratchGroup.
type Lane struct {
	index int
}

var ScratchGroup = Lane{index: 0}

func LaneIndex(i int) Lane { return Lane{index: i} }

func (l Lane) IsScratch() bool { return l.index == 0 }

// Index returns the 1-based lane number and false for the scratch group.
func (l Lane) Index() (int, bool) {
	if l.index == 0 {
		return 0, false
	}
	return l.index, true
}

func (l Lane) String() string {
	if l.index == 0 {
		return "-"
	}
	return fmt.Sprintf("Lane %d", l.index)
}

var deviceIDPattern = regexp.MustCompile(`^[0-9]{1,2}$`)

// NormalizeDeviceID validates a device identifier and returns it
// zero-padded to two characters ("3" -> "03").
func NormalizeDeviceID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !deviceIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid device id %q", id)
	}
	n, _ := strconv.Atoi(id)
	return fmt.Sprintf("%02d", n), nil
}

// StartPoint describes one start distance: either a fixed set of lanes with
// at most one device per lane, or a scratch group whose devices all fire
// identically.
type StartPoint struct {
	Distance     string         `yaml:"distance"`
	HasLanes     bool           `yaml:"hasLanes"`
	NumLanes     int            `yaml:"numLanes,omitempty"`
	LaneDevices  map[int]string `yaml:"laneDevices,omitempty"`
	GroupDevices []string       `yaml:"groupDevices,omitempty"`
}

// Validate checks the structural invariants of a start point.
func (sp *StartPoint) Validate() error {
	if sp.Distance == "" {
		return fmt.Errorf("start point without distance")
	}
	if sp.HasLanes {
		if sp.NumLanes <= 0 {
			return fmt.Errorf("start point %s: lane count must be positive", sp.Distance)
		}
		for lane := range sp.LaneDevices {
			if lane < 1 || lane > sp.NumLanes {
				return fmt.Errorf("start point %s: lane %d outside [1,%d]",
					sp.Distance, lane, sp.NumLanes)
			}
		}
		if len(sp.GroupDevices) > 0 {
			return fmt.Errorf("start point %s: laned event must not carry group devices",
				sp.Distance)
		}
	} else if len(sp.LaneDevices) > 0 {
		return fmt.Errorf("start point %s: scratch event must not carry lane devices",
			sp.Distance)
	}
	return nil
}

// DeviceForLane resolves the bound device for a lane, empty when unbound.
func (sp *StartPoint) DeviceForLane(lane Lane) string {
	if idx, ok := lane.Index(); ok {
		return sp.LaneDevices[idx]
	}
	return ""
}

// ClearBindings drops all device bindings, lane and group alike. Both
// fields go back to nil so a cleared point marshals the same as a fresh
// one.
func (sp *StartPoint) ClearBindings() {
	sp.LaneDevices = nil
	sp.GroupDevices = nil
}
