// Package roster reads and writes the athlete roster CSV. The file has
// a header of ID,Name followed by one column per distance; personal
// bests are seconds, an empty or non-numeric cell means no PB.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

// Roster is the athlete table plus the distance column order of the
// file it came from, so writes round-trip the layout.
type Roster struct {
	Athletes  map[string]model.Athlete
	Distances []string
}

func Read(r io.Reader) (*Roster, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading roster header: %w", err)
	}
	if len(header) < 2 ||
		!strings.EqualFold(header[0], "ID") || !strings.EqualFold(header[1], "Name") {
		return nil, fmt.Errorf("roster header must start with ID,Name, got %v", header)
	}
	distances := header[2:]

	ros := &Roster{
		Athletes:  map[string]model.Athlete{},
		Distances: distances,
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading roster row: %w", err)
		}
		id := model.NormalizeAthleteID(rec[0])
		if id == "" {
			continue
		}
		if _, dup := ros.Athletes[id]; dup {
			return nil, fmt.Errorf("duplicate athlete id %q", id)
		}
		ath := model.Athlete{
			ID:   id,
			Name: strings.TrimSpace(rec[1]),
			PBs:  map[string]float64{},
		}
		for i, dist := range distances {
			col := i + 2
			if col >= len(rec) {
				break
			}
			cell := strings.TrimSpace(rec[col])
			if cell == "" {
				continue
			}
			pb, err := strconv.ParseFloat(cell, 64)
			if err != nil || pb < 0 {
				// not a time, leave the PB unknown
				continue
			}
			ath.PBs[dist] = pb
		}
		ros.Athletes[id] = ath
	}
	return ros, nil
}

func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write emits the roster with athletes sorted by id and times printed
// with two decimals, matching the hand-maintained files.
func (ros *Roster) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"ID", "Name"}, ros.Distances...)
	if err := cw.Write(header); err != nil {
		return err
	}
	ids := lo.Keys(ros.Athletes)
	sort.Strings(ids)
	for _, id := range ids {
		ath := ros.Athletes[id]
		rec := []string{ath.ID, ath.Name}
		for _, dist := range ros.Distances {
			if pb, ok := ath.PBs[dist]; ok {
				rec = append(rec, strconv.FormatFloat(pb, 'f', 2, 64))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (ros *Roster) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing roster: %w", err)
	}
	defer f.Close()
	return ros.Write(f)
}

// RecordResult applies a finish time: the PB is replaced only when the
// new time is strictly faster. Reports whether a new PB was set.
func (ros *Roster) RecordResult(athleteID, distance string, actual float64) (bool, error) {
	id := model.NormalizeAthleteID(athleteID)
	ath, ok := ros.Athletes[id]
	if !ok {
		return false, fmt.Errorf("athlete %q not in roster", id)
	}
	if actual < 0 {
		return false, fmt.Errorf("negative time %.3f for %s", actual, id)
	}
	prev, had := ath.PBs[distance]
	if had && actual >= prev {
		return false, nil
	}
	if ath.PBs == nil {
		ath.PBs = map[string]float64{}
	}
	ath.PBs[distance] = actual
	ros.Athletes[id] = ath
	if !lo.Contains(ros.Distances, distance) {
		ros.Distances = append(ros.Distances, distance)
	}
	return true, nil
}
