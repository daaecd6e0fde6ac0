package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDeviceID(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"3", "03", false},
		{"03", "03", false},
		{" 12 ", "12", false},
		{"99", "99", false},
		{"123", "", true},
		{"ab", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeDeviceID(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestLane(t *testing.T) {
	l := LaneIndex(3)
	assert.False(t, l.IsScratch())
	idx, ok := l.Index()
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, "Lane 3", l.String())

	assert.True(t, ScratchGroup.IsScratch())
	_, ok = ScratchGroup.Index()
	assert.False(t, ok)
	assert.Equal(t, "-", ScratchGroup.String())
}

func TestStartPointValidate(t *testing.T) {
	sp := StartPoint{Distance: "100", HasLanes: true, NumLanes: 4,
		LaneDevices: map[int]string{1: "01", 4: "04"}}
	assert.NoError(t, sp.Validate())

	sp.LaneDevices[5] = "05"
	assert.Error(t, sp.Validate())

	scratch := StartPoint{Distance: "800", GroupDevices: []string{"07"}}
	assert.NoError(t, scratch.Validate())
}

func TestDeviceForLane(t *testing.T) {
	sp := StartPoint{Distance: "100", HasLanes: true, NumLanes: 2,
		LaneDevices: map[int]string{1: "01"}}
	assert.Equal(t, "01", sp.DeviceForLane(LaneIndex(1)))
	assert.Equal(t, "", sp.DeviceForLane(LaneIndex(2)))

	sp.ClearBindings()
	// nil, not an empty map, so a cleared point round-trips through YAML
	assert.Nil(t, sp.LaneDevices)
	assert.Nil(t, sp.GroupDevices)
}
