package model

import "strings"

// Athlete is one roster record. PBs maps a distance label ("100", "400", ...)
// to the personal best time in seconds. A missing key means no PB is known
// for that distance, which is not the same as a PB of 0.
type Athlete struct {
	ID   string             `json:"id"`
	Name string             `json:"name"`
	PBs  map[string]float64 `json:"pbs"`
}

// NormalizeAthleteID upper-cases and trims an athlete identifier the way
// roster files and race entries store it.
func NormalizeAthleteID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// PB returns the personal best for a distance and whether one is recorded.
func (a *Athlete) PB(distance string) (float64, bool) {
	v, ok := a.PBs[distance]
	return v, ok
}
