package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleSchedule is returned when a schedule or command is requested
	// after upstream data changed without recomputation.
	ErrStaleSchedule = errors.New("derived race data is stale, recompute before dispatch")
	// ErrInvalidCadence is returned when the signal cadence is not strictly
	// increasing.
	ErrInvalidCadence = errors.New("signal cadence must satisfy 0 < red < green < off")
)

type DiagnosticKind string

const (
	// MissingPersonalBest: entry has no PB for its distance; it runs with
	// offset 0 rather than being excluded.
	MissingPersonalBest DiagnosticKind = "MissingPersonalBest"
	// LaneOverflow: more ranked entries than lanes; excess entries stay
	// unassigned.
	LaneOverflow DiagnosticKind = "LaneOverflow"
	// UnboundDevice: a lane or group has an assignment but no device; the
	// affected entry is excluded from the schedule.
	UnboundDevice DiagnosticKind = "UnboundDevice"
	// InvalidVolume: a requested volume was outside [0,30] and got clamped.
	InvalidVolume DiagnosticKind = "InvalidVolume"
)

// Diagnostic is a non-fatal finding produced by a core computation.
// The computation result is still valid; the caller decides whether to
// warn or abort.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Distance  string         `json:"distance,omitempty"`
	AthleteID string         `json:"athleteId,omitempty"`
	Device    string         `json:"device,omitempty"`
	Detail    string         `json:"detail"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
}
