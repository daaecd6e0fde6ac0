package track

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

func TestDefine(t *testing.T) {
	var tp Topology
	require.NoError(t, tp.Define("100", 6))
	require.NoError(t, tp.Define("800", 0))

	sp := tp.Point("100")
	require.NotNil(t, sp)
	assert.True(t, sp.HasLanes)
	assert.Equal(t, 6, sp.NumLanes)

	sp = tp.Point("800")
	require.NotNil(t, sp)
	assert.False(t, sp.HasLanes)

	assert.Error(t, tp.Define("150", 4), "150m is not a start point")
	assert.Error(t, tp.Define("100", -1))

	// redefining replaces, including bindings
	require.NoError(t, tp.Bind("100", map[int]string{1: "01"}, nil))
	require.NoError(t, tp.Define("100", 4))
	assert.Empty(t, tp.Point("100").LaneDevices)
}

func TestDefine_SortedByDistance(t *testing.T) {
	var tp Topology
	require.NoError(t, tp.Define("800", 0))
	require.NoError(t, tp.Define("60", 4))
	require.NoError(t, tp.Define("200", 4))
	dists := []string{}
	for _, sp := range tp.Points {
		dists = append(dists, sp.Distance)
	}
	assert.Equal(t, []string{"60", "200", "800"}, dists)
}

func TestBind_Laned(t *testing.T) {
	var tp Topology
	require.NoError(t, tp.Define("100", 4))

	require.NoError(t, tp.Bind("100", map[int]string{1: "1", 3: "07"}, nil))
	sp := tp.Point("100")
	assert.Equal(t, map[int]string{1: "01", 3: "07"}, sp.LaneDevices)

	// a rebind clears everything bound before
	require.NoError(t, tp.Bind("100", map[int]string{2: "02"}, nil))
	assert.Equal(t, map[int]string{2: "02"}, tp.Point("100").LaneDevices)

	assert.Error(t, tp.Bind("100", map[int]string{5: "05"}, nil), "lane out of range")
	assert.Error(t, tp.Bind("100", map[int]string{1: "abc"}, nil), "bad device id")
	assert.Error(t, tp.Bind("100", nil, []string{"01"}), "group devices on laned point")
	assert.Error(t, tp.Bind("400", map[int]string{1: "01"}, nil), "unconfigured distance")
}

func TestBind_Scratch(t *testing.T) {
	var tp Topology
	require.NoError(t, tp.Define("800", 0))

	require.NoError(t, tp.Bind("800", nil, []string{"9", "07"}))
	assert.Equal(t, []string{"07", "09"}, tp.Point("800").GroupDevices)

	assert.Error(t, tp.Bind("800", map[int]string{1: "01"}, nil), "lane bindings on scratch point")
}

func TestValidate(t *testing.T) {
	tp := Topology{Points: []model.StartPoint{
		{Distance: "100", HasLanes: true, NumLanes: 4},
		{Distance: "100", HasLanes: true, NumLanes: 6},
	}}
	assert.Error(t, tp.Validate(), "duplicate distance")

	tp = Topology{Points: []model.StartPoint{{Distance: "42"}}}
	assert.Error(t, tp.Validate(), "invalid distance")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	var tp Topology
	require.NoError(t, tp.Define("100", 4))
	require.NoError(t, tp.Define("800", 0))
	require.NoError(t, tp.Bind("100", map[int]string{1: "01", 2: "02"}, nil))
	require.NoError(t, tp.Bind("800", nil, []string{"07"}))

	path := filepath.Join(t.TempDir(), "track.yml")
	require.NoError(t, tp.Save(path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tp.Points, again.Points)
}

func TestSave_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.yml")
	tp := Topology{Points: []model.StartPoint{{Distance: "42"}}}
	assert.Error(t, tp.Save(path))
}
