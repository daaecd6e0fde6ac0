// Package handicap computes staggered start offsets from personal bests.
package handicap

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

// Calculate derives StartOffset and PersonalBest for all entries of one
// distance. The slowest recorded PB becomes the reference: that athlete
// starts at offset 0, everyone else starts slowestPB-ownPB seconds
// earlier, so equal-pace finishes coincide. Entries without a PB run with
// offset 0 and are reported as MissingPersonalBest.
//
// The input is not modified; the returned slice preserves input order.
func Calculate(entries []model.RaceEntry) ([]model.RaceEntry, []model.Diagnostic) {
	diags := make([]model.Diagnostic, 0)

	withPB := lo.Filter(entries, func(e model.RaceEntry, _ int) bool { return e.HasPB })
	slowest := 0.0
	if len(withPB) > 0 {
		slowest = lo.MaxBy(withPB, func(a, b model.RaceEntry) bool {
			return a.PersonalBest > b.PersonalBest
		}).PersonalBest
	}

	out := make([]model.RaceEntry, len(entries))
	for i, e := range entries {
		if e.HasPB {
			e.StartOffset = round3(slowest - e.PersonalBest)
		} else {
			e.PersonalBest = 0
			e.StartOffset = 0
			diags = append(diags, model.Diagnostic{
				Kind:      model.MissingPersonalBest,
				Distance:  e.Distance,
				AthleteID: e.AthleteID,
				Detail: fmt.Sprintf("%s has no PB for %sm, starting without head start",
					e.AthleteID, e.Distance),
			})
		}
		out[i] = e
	}
	return out, diags
}

// round3 keeps offsets at a fixed 3 decimal precision so the later
// integer rounding of the wire command stays stable.
func round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
