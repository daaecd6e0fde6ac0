// Package race holds the lifecycle of one race session: roster and
// topology snapshots, entries, the derived schedule, and the encoded
// wire command. Derived data is staged; any upstream edit drops it so a
// stale schedule can never reach the transmitter.
package race

import (
	"fmt"

	"github.com/GavinPos/StarterDevices/pkg/model"
	"github.com/GavinPos/StarterDevices/pkg/processing/handicap"
	"github.com/GavinPos/StarterDevices/pkg/processing/lanes"
	"github.com/GavinPos/StarterDevices/pkg/processing/schedule"
	"github.com/GavinPos/StarterDevices/pkg/wire"
)

type Stage int

const (
	StageConfiguring Stage = iota
	StageHandicapsComputed
	StageLanesAssigned
	StageScheduleBuilt
	StageCommandEncoded
	StageDispatched
)

func (s Stage) String() string {
	switch s {
	case StageConfiguring:
		return "Configuring"
	case StageHandicapsComputed:
		return "HandicapsComputed"
	case StageLanesAssigned:
		return "LanesAssigned"
	case StageScheduleBuilt:
		return "ScheduleBuilt"
	case StageCommandEncoded:
		return "CommandEncoded"
	case StageDispatched:
		return "Dispatched"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Context bundles everything one race needs. It replaces the ambient
// globals of earlier tooling: every computation works on this value and
// nothing else.
type Context struct {
	roster  map[string]model.Athlete
	points  []model.StartPoint
	entries []model.RaceEntry
	volumes wire.Volumes
	cadence model.Cadence
	pattern lanes.Pattern

	stage    Stage
	schedule model.DeviceSchedule
	command  string
}

type Option func(*Context)

func WithCadence(c model.Cadence) Option {
	return func(rc *Context) { rc.cadence = c }
}

func WithVolumes(v wire.Volumes) Option {
	return func(rc *Context) { rc.volumes = v }
}

func WithPattern(p lanes.Pattern) Option {
	return func(rc *Context) { rc.pattern = p }
}

func New(roster map[string]model.Athlete, points []model.StartPoint, opts ...Option) (*Context, error) {
	for i := range points {
		if err := points[i].Validate(); err != nil {
			return nil, err
		}
	}
	rc := &Context{
		roster:  roster,
		points:  points,
		cadence: model.DefaultCadence(),
		pattern: lanes.PatternOutsideIn,
		stage:   StageConfiguring,
	}
	for _, opt := range opts {
		opt(rc)
	}
	if err := rc.cadence.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *Context) Stage() Stage { return rc.stage }

// Entries returns a copy of the current entries.
func (rc *Context) Entries() []model.RaceEntry {
	out := make([]model.RaceEntry, len(rc.entries))
	copy(out, rc.entries)
	return out
}

func (rc *Context) startPoint(distance string) *model.StartPoint {
	for i := range rc.points {
		if rc.points[i].Distance == distance {
			return &rc.points[i]
		}
	}
	return nil
}

// Enter adds an athlete to a start point. On laned points the lane may
// be a valid free index, or model.ScratchGroup to leave the choice to
// AssignLanes. Scratch points always take model.ScratchGroup.
func (rc *Context) Enter(athleteID, distance string, lane model.Lane) error {
	id := model.NormalizeAthleteID(athleteID)
	ath, ok := rc.roster[id]
	if !ok {
		return fmt.Errorf("athlete %q not in roster", id)
	}
	sp := rc.startPoint(distance)
	if sp == nil {
		return fmt.Errorf("no start point for %sm", distance)
	}
	if idx, laned := lane.Index(); laned {
		if !sp.HasLanes {
			return fmt.Errorf("%sm is a scratch event, entries carry no lane", distance)
		}
		if idx < 1 || idx > sp.NumLanes {
			return fmt.Errorf("lane %d outside [1,%d] for %sm", idx, sp.NumLanes, distance)
		}
		for _, e := range rc.entries {
			if e.Distance == distance && e.Lane == lane {
				return fmt.Errorf("lane %d of %sm already taken by %s", idx, distance, e.AthleteID)
			}
		}
	}
	for _, e := range rc.entries {
		if e.AthleteID == id {
			return fmt.Errorf("athlete %s already entered", id)
		}
	}

	pb, hasPB := ath.PB(distance)
	rc.entries = append(rc.entries, model.RaceEntry{
		AthleteID:    id,
		Name:         ath.Name,
		Distance:     distance,
		Lane:         lane,
		PersonalBest: pb,
		HasPB:        hasPB,
	})
	rc.invalidate()
	return nil
}

// Withdraw removes an athlete's entry.
func (rc *Context) Withdraw(athleteID string) error {
	id := model.NormalizeAthleteID(athleteID)
	for i, e := range rc.entries {
		if e.AthleteID == id {
			rc.entries = append(rc.entries[:i], rc.entries[i+1:]...)
			rc.invalidate()
			return nil
		}
	}
	return fmt.Errorf("athlete %s is not entered", id)
}

// BindLaneDevice (re)binds a device to a lane.
func (rc *Context) BindLaneDevice(distance string, lane, device string) error {
	sp := rc.startPoint(distance)
	if sp == nil {
		return fmt.Errorf("no start point for %sm", distance)
	}
	if !sp.HasLanes {
		return fmt.Errorf("%sm is a scratch event", distance)
	}
	var idx int
	if _, err := fmt.Sscanf(lane, "%d", &idx); err != nil {
		return fmt.Errorf("invalid lane %q", lane)
	}
	if idx < 1 || idx > sp.NumLanes {
		return fmt.Errorf("lane %d outside [1,%d]", idx, sp.NumLanes)
	}
	dev, err := model.NormalizeDeviceID(device)
	if err != nil {
		return err
	}
	if sp.LaneDevices == nil {
		sp.LaneDevices = map[int]string{}
	}
	sp.LaneDevices[idx] = dev
	rc.invalidate()
	return nil
}

// SetVolumes replaces the volume table.
func (rc *Context) SetVolumes(v wire.Volumes) {
	rc.volumes = v
	rc.invalidate()
}

// SetCadence replaces the signal cadence.
func (rc *Context) SetCadence(c model.Cadence) error {
	if err := c.Validate(); err != nil {
		return err
	}
	rc.cadence = c
	rc.invalidate()
	return nil
}

// invalidate drops all derived state; callers must rerun the pipeline.
func (rc *Context) invalidate() {
	rc.stage = StageConfiguring
	rc.schedule = nil
	rc.command = ""
}

// ComputeHandicaps derives start offsets per distance.
func (rc *Context) ComputeHandicaps() ([]model.Diagnostic, error) {
	diags := make([]model.Diagnostic, 0)
	updated := make([]model.RaceEntry, 0, len(rc.entries))
	for i := range rc.points {
		dist := rc.points[i].Distance
		var group []model.RaceEntry
		for _, e := range rc.entries {
			if e.Distance == dist {
				group = append(group, e)
			}
		}
		if len(group) == 0 {
			continue
		}
		calced, ds := handicap.Calculate(group)
		updated = append(updated, calced...)
		diags = append(diags, ds...)
	}
	rc.entries = updated
	rc.stage = StageHandicapsComputed
	rc.schedule = nil
	rc.command = ""
	return diags, nil
}

// AssignLanes reassigns lanes on every laned start point with entries,
// replacing the previous mapping wholesale.
func (rc *Context) AssignLanes() ([]model.Diagnostic, error) {
	if rc.stage < StageHandicapsComputed {
		return nil, fmt.Errorf("%w: handicaps not computed", model.ErrStaleSchedule)
	}
	diags := make([]model.Diagnostic, 0)
	for i := range rc.points {
		sp := &rc.points[i]
		if !sp.HasLanes {
			continue
		}
		var group []model.RaceEntry
		rest := make([]model.RaceEntry, 0, len(rc.entries))
		for _, e := range rc.entries {
			if e.Distance == sp.Distance {
				group = append(group, e)
			} else {
				rest = append(rest, e)
			}
		}
		if len(group) == 0 {
			continue
		}
		assigned, ds := lanes.Assign(group, sp.NumLanes, rc.pattern)
		diags = append(diags, ds...)
		placed := map[string]bool{}
		for lane := 1; lane <= sp.NumLanes; lane++ {
			if e, ok := assigned[lane]; ok {
				rest = append(rest, e)
				placed[e.AthleteID] = true
			}
		}
		// overflow entries stay in the race, just without a lane
		for _, e := range group {
			if !placed[e.AthleteID] {
				e.Lane = model.ScratchGroup
				rest = append(rest, e)
			}
		}
		rc.entries = rest
	}
	rc.stage = StageLanesAssigned
	return diags, nil
}

// BuildSchedule resolves devices and derives the signal schedule.
func (rc *Context) BuildSchedule() (model.DeviceSchedule, []model.Diagnostic, error) {
	required := StageHandicapsComputed
	if rc.hasLanedEntries() {
		required = StageLanesAssigned
	}
	if rc.stage < required {
		return nil, nil, fmt.Errorf("%w: schedule requires %s", model.ErrStaleSchedule, required)
	}

	for i, e := range rc.entries {
		if sp := rc.startPoint(e.Distance); sp != nil {
			rc.entries[i].Device = sp.DeviceForLane(e.Lane)
		}
	}

	builder := schedule.NewBuilder(schedule.WithCadence(rc.cadence))
	sched, diags, err := builder.Build(rc.points, rc.entries)
	if err != nil {
		return nil, nil, err
	}
	rc.schedule = sched
	rc.command = ""
	rc.stage = StageScheduleBuilt
	return sched, diags, nil
}

// EncodeCommand serializes the built schedule into the wire command.
func (rc *Context) EncodeCommand() (string, []model.Diagnostic, error) {
	if rc.stage < StageScheduleBuilt {
		return "", nil, fmt.Errorf("%w: no schedule built", model.ErrStaleSchedule)
	}
	cmd, diags := wire.Encode(rc.schedule, rc.volumes)
	rc.command = cmd
	rc.stage = StageCommandEncoded
	return cmd, diags, nil
}

// Command returns the encoded command, only while it is current.
func (rc *Context) Command() (string, error) {
	if rc.stage < StageCommandEncoded {
		return "", fmt.Errorf("%w: command not encoded", model.ErrStaleSchedule)
	}
	return rc.command, nil
}

// Schedule returns the current device schedule, only while it is current.
func (rc *Context) Schedule() (model.DeviceSchedule, error) {
	if rc.stage < StageScheduleBuilt {
		return nil, fmt.Errorf("%w: no schedule built", model.ErrStaleSchedule)
	}
	return rc.schedule, nil
}

func (rc *Context) hasLanedEntries() bool {
	for _, e := range rc.entries {
		if sp := rc.startPoint(e.Distance); sp != nil && sp.HasLanes {
			return true
		}
	}
	return false
}

func (rc *Context) markDispatched() {
	rc.stage = StageDispatched
}
