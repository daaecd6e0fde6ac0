// Package schedule turns start offsets and device bindings into the
// per-device signal schedule consumed by the command encoder.
package schedule

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

type Builder struct {
	cadence model.Cadence
}

type Option func(b *Builder)

func WithCadence(c model.Cadence) Option {
	return func(b *Builder) {
		b.cadence = c
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{cadence: model.DefaultCadence()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the device schedule across all start points. The zero
// point is the minimum start offset over the whole race, so devices of
// different simultaneous events stay relatively synchronized.
//
// Start points without entries are skipped, their devices stay dark.
// Laned points schedule one device per bound lane: the lane's entry
// offset when assigned, idle timing otherwise. Scratch points fire all
// bound devices together at the group's earliest entry offset. Entries
// whose lane or group has no device are excluded and reported as
// UnboundDevice. Build is a pure recomputation, safe to call repeatedly.
func (b *Builder) Build(
	points []model.StartPoint,
	entries []model.RaceEntry,
) (model.DeviceSchedule, []model.Diagnostic, error) {
	if err := b.cadence.Validate(); err != nil {
		return nil, nil, err
	}

	diags := make([]model.Diagnostic, 0)
	minOffset := 0.0
	if len(entries) > 0 {
		minOffset = lo.MinBy(entries, func(a, bb model.RaceEntry) bool {
			return a.StartOffset < bb.StartOffset
		}).StartOffset
	}

	sched := model.DeviceSchedule{}
	for i := range points {
		sp := &points[i]
		spEntries := lo.Filter(entries, func(e model.RaceEntry, _ int) bool {
			return e.Distance == sp.Distance
		})
		if sp.HasLanes {
			b.buildLaned(sp, spEntries, minOffset, sched, &diags)
		} else {
			b.buildScratch(sp, spEntries, minOffset, sched, &diags)
		}
	}
	return sched, diags, nil
}

func (b *Builder) buildLaned(
	sp *model.StartPoint,
	entries []model.RaceEntry,
	minOffset float64,
	sched model.DeviceSchedule,
	diags *[]model.Diagnostic,
) {
	if len(entries) == 0 {
		return
	}
	byLane := map[int]model.RaceEntry{}
	for _, e := range entries {
		if idx, ok := e.Lane.Index(); ok {
			byLane[idx] = e
		}
	}
	for lane := 1; lane <= sp.NumLanes; lane++ {
		dev := sp.LaneDevices[lane]
		entry, occupied := byLane[lane]
		if dev == "" {
			if occupied {
				*diags = append(*diags, model.Diagnostic{
					Kind:      model.UnboundDevice,
					Distance:  sp.Distance,
					AthleteID: entry.AthleteID,
					Detail: fmt.Sprintf("lane %d of %sm has no device, %s is not scheduled",
						lane, sp.Distance, entry.AthleteID),
				})
			}
			continue
		}
		redOn := 0 - minOffset
		if occupied {
			redOn = entry.StartOffset - minOffset
		}
		sched[dev] = b.times(redOn)
	}
}

func (b *Builder) buildScratch(
	sp *model.StartPoint,
	entries []model.RaceEntry,
	minOffset float64,
	sched model.DeviceSchedule,
	diags *[]model.Diagnostic,
) {
	if len(entries) == 0 {
		return
	}
	if len(sp.GroupDevices) == 0 {
		*diags = append(*diags, model.Diagnostic{
			Kind:     model.UnboundDevice,
			Distance: sp.Distance,
			Detail: fmt.Sprintf("scratch group %sm has entries but no devices",
				sp.Distance),
		})
		return
	}
	// the whole group fires at the earliest offset of its own entries
	groupOffset := lo.MinBy(entries, func(a, bb model.RaceEntry) bool {
		return a.StartOffset < bb.StartOffset
	}).StartOffset
	for _, dev := range sp.GroupDevices {
		sched[dev] = b.times(groupOffset - minOffset)
	}
}

func (b *Builder) times(redOn float64) model.SignalTimes {
	return model.SignalTimes{
		RedOn:    redOn,
		OrangeOn: redOn + b.cadence.Red,
		GreenOn:  redOn + b.cadence.Green,
		Off:      redOn + b.cadence.Off,
	}
}
