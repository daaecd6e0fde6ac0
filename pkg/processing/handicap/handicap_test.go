package handicap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

func entry(id string, pb float64, hasPB bool) model.RaceEntry {
	return model.RaceEntry{
		AthleteID:    id,
		Distance:     "100",
		PersonalBest: pb,
		HasPB:        hasPB,
	}
}

func TestCalculate_OffsetsAgainstSlowest(t *testing.T) {
	entries := []model.RaceEntry{
		entry("A", 12.00, true),
		entry("B", 13.50, true),
		entry("C", 11.80, true),
	}
	got, diags := Calculate(entries)

	assert.Empty(t, diags)
	assert.InDelta(t, 1.50, got[0].StartOffset, 1e-9)
	assert.InDelta(t, 0.00, got[1].StartOffset, 1e-9)
	assert.InDelta(t, 1.70, got[2].StartOffset, 1e-9)
}

func TestCalculate_SlowestHasZeroOffset(t *testing.T) {
	entries := []model.RaceEntry{
		entry("A", 58.21, true),
		entry("B", 61.90, true),
		entry("C", 60.05, true),
	}
	got, _ := Calculate(entries)
	for _, e := range got {
		if e.PersonalBest == 61.90 {
			assert.Zero(t, e.StartOffset)
		} else {
			assert.InDelta(t, 61.90-e.PersonalBest, e.StartOffset, 1e-3)
		}
	}
}

func TestCalculate_MissingPBGetsZeroAndDiagnostic(t *testing.T) {
	entries := []model.RaceEntry{
		entry("A", 12.00, true),
		entry("B", 0, false),
	}
	got, diags := Calculate(entries)

	assert.Equal(t, 0.0, got[1].StartOffset)
	assert.Equal(t, 0.0, got[1].PersonalBest)
	assert.Len(t, diags, 1)
	assert.Equal(t, model.MissingPersonalBest, diags[0].Kind)
	assert.Equal(t, "B", diags[0].AthleteID)
}

func TestCalculate_NoPBsAtAll(t *testing.T) {
	entries := []model.RaceEntry{entry("A", 0, false), entry("B", 0, false)}
	got, diags := Calculate(entries)
	assert.Len(t, diags, 2)
	for _, e := range got {
		assert.Zero(t, e.StartOffset)
	}
}

func TestCalculate_RoundsToThreeDecimals(t *testing.T) {
	entries := []model.RaceEntry{
		entry("A", 10.0001, true),
		entry("B", 11.3335, true),
	}
	got, _ := Calculate(entries)
	assert.Equal(t, 1.333, got[0].StartOffset)
}

func TestCalculate_IsDeterministicAndPure(t *testing.T) {
	entries := []model.RaceEntry{
		entry("A", 12.00, true),
		entry("B", 13.50, true),
	}
	first, _ := Calculate(entries)
	second, _ := Calculate(entries)
	assert.Equal(t, first, second)
	// input untouched
	assert.Zero(t, entries[0].StartOffset)
}
