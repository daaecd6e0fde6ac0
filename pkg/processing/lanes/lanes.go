// Package lanes ranks race entries by handicap and maps them onto lanes.
package lanes

import (
	"fmt"
	"sort"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

type Pattern string

const (
	// PatternOutsideIn is the snake order 1, N, 2, N-1, ...
	PatternOutsideIn Pattern = "outside-in"
	// PatternLeftToRight fills lanes 1..N in rank order.
	PatternLeftToRight Pattern = "left-to-right"
)

func ParsePattern(s string) (Pattern, error) {
	switch Pattern(s) {
	case PatternOutsideIn, PatternLeftToRight:
		return Pattern(s), nil
	}
	return "", fmt.Errorf("unknown lane pattern %q", s)
}

// Rank orders entries slowest to fastest: ascending start offset (the
// slowest athlete carries offset 0), ties broken by larger PB first,
// then by name. The input is not modified.
func Rank(entries []model.RaceEntry) []model.RaceEntry {
	ranked := make([]model.RaceEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.StartOffset != b.StartOffset {
			return a.StartOffset < b.StartOffset
		}
		if a.PersonalBest != b.PersonalBest {
			return a.PersonalBest > b.PersonalBest
		}
		return a.Name < b.Name
	})
	return ranked
}

// Order returns the lane sequence ranks are assigned to.
func (p Pattern) Order(numLanes int) []int {
	order := make([]int, 0, numLanes)
	switch p {
	case PatternLeftToRight:
		for i := 1; i <= numLanes; i++ {
			order = append(order, i)
		}
	default: // snake
		left, right := 1, numLanes
		for left <= right {
			order = append(order, left)
			if right != left {
				order = append(order, right)
			}
			left++
			right--
		}
	}
	return order
}

// Assign produces a lane -> entry mapping for one laned start point.
// It replaces any previous mapping wholesale. Entries beyond the lane
// count stay unassigned and are reported as LaneOverflow.
func Assign(entries []model.RaceEntry, numLanes int, p Pattern) (map[int]model.RaceEntry, []model.Diagnostic) {
	diags := make([]model.Diagnostic, 0)
	ranked := Rank(entries)
	order := p.Order(numLanes)

	assigned := make(map[int]model.RaceEntry, numLanes)
	for i, e := range ranked {
		if i >= len(order) {
			diags = append(diags, model.Diagnostic{
				Kind:      model.LaneOverflow,
				Distance:  e.Distance,
				AthleteID: e.AthleteID,
				Detail: fmt.Sprintf("no lane left for %s (%d lanes, %d entries)",
					e.AthleteID, numLanes, len(ranked)),
			})
			continue
		}
		lane := order[i]
		e.Lane = model.LaneIndex(lane)
		assigned[lane] = e
	}
	return assigned, diags
}
