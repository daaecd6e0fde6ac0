package schedule

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

func lanedPoint(distance string, numLanes int, devices map[int]string) model.StartPoint {
	return model.StartPoint{
		Distance:    distance,
		HasLanes:    true,
		NumLanes:    numLanes,
		LaneDevices: devices,
	}
}

func lanedEntry(id, distance string, lane int, offset float64) model.RaceEntry {
	return model.RaceEntry{
		AthleteID:   id,
		Distance:    distance,
		Lane:        model.LaneIndex(lane),
		HasPB:       true,
		StartOffset: offset,
	}
}

func TestBuild_LanedOffsets(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 3, map[int]string{1: "01", 2: "02", 3: "03"}),
	}
	entries := []model.RaceEntry{
		lanedEntry("A", "100", 1, 0.0),
		lanedEntry("B", "100", 2, 1.5),
		lanedEntry("C", "100", 3, 1.7),
	}
	sched, diags, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	assert.Empty(t, diags)

	want := model.DeviceSchedule{
		"01": {RedOn: 0.0, OrangeOn: 5.0, GreenOn: 9.0, Off: 11.0},
		"02": {RedOn: 1.5, OrangeOn: 6.5, GreenOn: 10.5, Off: 12.5},
		"03": {RedOn: 1.7, OrangeOn: 6.7, GreenOn: 10.7, Off: 12.7},
	}
	if diff := cmp.Diff(want, sched); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_MonotonicPerDevice(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 2, map[int]string{1: "01", 2: "02"}),
	}
	entries := []model.RaceEntry{
		lanedEntry("A", "100", 1, 0.0),
		lanedEntry("B", "100", 2, 4.25),
	}
	sched, _, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	for dev, ts := range sched {
		assert.Less(t, ts.RedOn, ts.OrangeOn, dev)
		assert.Less(t, ts.OrangeOn, ts.GreenOn, dev)
		assert.Less(t, ts.GreenOn, ts.Off, dev)
	}
}

func TestBuild_BoundButEmptyLaneGetsIdleTiming(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 3, map[int]string{1: "01", 2: "02", 3: "03"}),
	}
	entries := []model.RaceEntry{
		lanedEntry("A", "100", 1, 0.0),
		lanedEntry("B", "100", 2, 1.5),
	}
	sched, diags, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	assert.Empty(t, diags)
	// lane 3 is bound but idle: still scheduled, at the shared zero point
	require.Contains(t, sched, "03")
	assert.Equal(t, 0.0, sched["03"].RedOn)
	assert.Equal(t, 1.5, sched["02"].RedOn)
}

func TestBuild_UnboundLaneReportedAndExcluded(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 3, map[int]string{1: "01", 3: "03"}),
	}
	entries := []model.RaceEntry{
		lanedEntry("A", "100", 1, 0.0),
		lanedEntry("B", "100", 2, 0.5),
		lanedEntry("C", "100", 3, 1.0),
	}
	sched, diags, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)

	assert.Len(t, sched, 2)
	assert.Contains(t, sched, "01")
	assert.Contains(t, sched, "03")
	require.Len(t, diags, 1)
	assert.Equal(t, model.UnboundDevice, diags[0].Kind)
	assert.Equal(t, "B", diags[0].AthleteID)
}

func TestBuild_ScratchGroupFiresTogether(t *testing.T) {
	points := []model.StartPoint{
		{Distance: "800", GroupDevices: []string{"07", "08"}},
	}
	entries := []model.RaceEntry{
		{AthleteID: "A", Distance: "800", Lane: model.ScratchGroup, HasPB: true, StartOffset: 2.0},
		{AthleteID: "B", Distance: "800", Lane: model.ScratchGroup, HasPB: true, StartOffset: 0.5},
	}
	sched, diags, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, sched["07"], sched["08"])
	// the group's min offset is also the global min, so it fires at zero
	assert.Equal(t, 0.0, sched["07"].RedOn)
}

func TestBuild_PointWithoutEntriesStaysDark(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 2, map[int]string{1: "01", 2: "02"}),
		{Distance: "800", GroupDevices: []string{"07"}},
	}
	entries := []model.RaceEntry{
		{AthleteID: "A", Distance: "800", Lane: model.ScratchGroup, HasPB: true, StartOffset: 0.5},
	}
	sched, diags, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	assert.Empty(t, diags)
	// the 100m event has no entrants, its bound devices must not fire
	assert.NotContains(t, sched, "01")
	assert.NotContains(t, sched, "02")
	require.Contains(t, sched, "07")
	assert.Equal(t, 0.0, sched["07"].RedOn)
}

func TestBuild_GlobalZeroAcrossStartPoints(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 1, map[int]string{1: "01"}),
		{Distance: "800", GroupDevices: []string{"07"}},
	}
	entries := []model.RaceEntry{
		lanedEntry("A", "100", 1, 3.0),
		{AthleteID: "B", Distance: "800", Lane: model.ScratchGroup, HasPB: true, StartOffset: 1.0},
	}
	sched, _, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	// global min offset is 1.0, shared by both events
	assert.Equal(t, 2.0, sched["01"].RedOn)
	assert.Equal(t, 0.0, sched["07"].RedOn)
}

func TestBuild_ScratchWithoutDevices(t *testing.T) {
	points := []model.StartPoint{{Distance: "800"}}
	entries := []model.RaceEntry{
		{AthleteID: "A", Distance: "800", Lane: model.ScratchGroup, StartOffset: 0},
	}
	sched, diags, err := NewBuilder().Build(points, entries)
	require.NoError(t, err)
	assert.Empty(t, sched)
	require.Len(t, diags, 1)
	assert.Equal(t, model.UnboundDevice, diags[0].Kind)
}

func TestBuild_DeterministicRebuild(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 2, map[int]string{1: "01", 2: "02"}),
	}
	entries := []model.RaceEntry{
		lanedEntry("A", "100", 1, 0.0),
		lanedEntry("B", "100", 2, 1.5),
	}
	b := NewBuilder()
	first, _, err := b.Build(points, entries)
	require.NoError(t, err)
	second, _, err := b.Build(points, entries)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_CustomCadence(t *testing.T) {
	points := []model.StartPoint{
		lanedPoint("100", 1, map[int]string{1: "01"}),
	}
	entries := []model.RaceEntry{lanedEntry("A", "100", 1, 0.0)}
	b := NewBuilder(WithCadence(model.Cadence{Red: 3, Green: 6, Off: 10}))
	sched, _, err := b.Build(points, entries)
	require.NoError(t, err)
	assert.Equal(t, model.SignalTimes{RedOn: 0, OrangeOn: 3, GreenOn: 6, Off: 10}, sched["01"])
}

func TestBuild_RejectsInvalidCadence(t *testing.T) {
	b := NewBuilder(WithCadence(model.Cadence{Red: 9, Green: 5, Off: 11}))
	_, _, err := b.Build(nil, nil)
	assert.ErrorIs(t, err, model.ErrInvalidCadence)
}
