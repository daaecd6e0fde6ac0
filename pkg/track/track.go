// Package track manages the track topology file: which distances have a
// start point, whether that point is laned, and which starter devices
// are bound where. The file is YAML so it can be hand-edited at the
// track with the transmitter unplugged.
package track

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

// ValidDistances are the start points a standard 400 m track offers.
var ValidDistances = []string{"60", "100", "200", "300", "400", "800", "1500"}

type Topology struct {
	Points []model.StartPoint `yaml:"startPoints"`
}

func ValidDistance(d string) bool {
	return lo.Contains(ValidDistances, d)
}

func (tp *Topology) Validate() error {
	seen := map[string]bool{}
	for i := range tp.Points {
		sp := &tp.Points[i]
		if !ValidDistance(sp.Distance) {
			return fmt.Errorf("no start point exists for %sm", sp.Distance)
		}
		if seen[sp.Distance] {
			return fmt.Errorf("duplicate start point for %sm", sp.Distance)
		}
		seen[sp.Distance] = true
		if err := sp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (tp *Topology) Point(distance string) *model.StartPoint {
	for i := range tp.Points {
		if tp.Points[i].Distance == distance {
			return &tp.Points[i]
		}
	}
	return nil
}

// Define adds or replaces the start point for a distance.
func (tp *Topology) Define(distance string, numLanes int) error {
	if !ValidDistance(distance) {
		return fmt.Errorf("no start point exists for %sm", distance)
	}
	if numLanes < 0 {
		return fmt.Errorf("negative lane count %d", numLanes)
	}
	sp := model.StartPoint{Distance: distance}
	if numLanes > 0 {
		sp.HasLanes = true
		sp.NumLanes = numLanes
	}
	if existing := tp.Point(distance); existing != nil {
		*existing = sp
		return nil
	}
	tp.Points = append(tp.Points, sp)
	tp.sortPoints()
	return nil
}

// Bind replaces all device bindings of one start point. Laned points
// take lane→device pairs, scratch points a device list. Prior bindings
// are cleared first, a rebind never leaves leftovers.
func (tp *Topology) Bind(distance string, laneDevices map[int]string, groupDevices []string) error {
	sp := tp.Point(distance)
	if sp == nil {
		return fmt.Errorf("%sm is not configured", distance)
	}
	sp.ClearBindings()
	if sp.HasLanes {
		if len(groupDevices) > 0 {
			return fmt.Errorf("%sm is laned, group devices not allowed", distance)
		}
		for lane, dev := range laneDevices {
			if lane < 1 || lane > sp.NumLanes {
				return fmt.Errorf("lane %d outside [1,%d] for %sm", lane, sp.NumLanes, distance)
			}
			norm, err := model.NormalizeDeviceID(dev)
			if err != nil {
				return err
			}
			if sp.LaneDevices == nil {
				sp.LaneDevices = map[int]string{}
			}
			sp.LaneDevices[lane] = norm
		}
		return nil
	}
	if len(laneDevices) > 0 {
		return fmt.Errorf("%sm is a scratch event, lane bindings not allowed", distance)
	}
	for _, dev := range groupDevices {
		norm, err := model.NormalizeDeviceID(dev)
		if err != nil {
			return err
		}
		sp.GroupDevices = append(sp.GroupDevices, norm)
	}
	sort.Strings(sp.GroupDevices)
	return nil
}

func (tp *Topology) sortPoints() {
	sort.Slice(tp.Points, func(i, j int) bool {
		a, _ := strconv.Atoi(tp.Points[i].Distance)
		b, _ := strconv.Atoi(tp.Points[j].Distance)
		return a < b
	})
}

func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	var tp Topology
	if err := yaml.Unmarshal(data, &tp); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	return &tp, nil
}

func (tp *Topology) Save(path string) error {
	if err := tp.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(tp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
