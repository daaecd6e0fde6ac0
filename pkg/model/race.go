package model

// RaceEntry is one athlete entered into one start point. PersonalBest and
// StartOffset are derived by the handicap calculator; Device is resolved
// from the current lane/device bindings and may be empty when unbound.
type RaceEntry struct {
	AthleteID    string  `json:"athleteId"`
	Name         string  `json:"name"`
	Distance     string  `json:"distance"`
	Lane         Lane    `json:"-"`
	PersonalBest float64 `json:"personalBest"`
	HasPB        bool    `json:"hasPb"`
	StartOffset  float64 `json:"startOffset"`
	Device       string  `json:"device,omitempty"`
}

// SignalTimes are the absolute offsets (seconds from the schedule zero
// point) at which one device transitions through its four states.
type SignalTimes struct {
	RedOn    float64 `json:"redOn"`
	OrangeOn float64 `json:"orangeOn"`
	GreenOn  float64 `json:"greenOn"`
	Off      float64 `json:"off"`
}

// DeviceSchedule maps device ids to their signal transition times.
// Only devices backing at least one assignment are present.
type DeviceSchedule map[string]SignalTimes

// Cadence is the marks/set/go/reset timing policy. All values are seconds
// after red-on; orange follows red by Red.
type Cadence struct {
	Red   float64 `yaml:"red"`
	Green float64 `yaml:"green"`
	Off   float64 `yaml:"off"`
}

// DefaultCadence matches the transmitter firmware defaults.
func DefaultCadence() Cadence {
	return Cadence{Red: 5, Green: 9, Off: 11}
}

// Validate enforces red < green < off so the per-device signal times
// stay strictly increasing.
func (c Cadence) Validate() error {
	if c.Red <= 0 || c.Red >= c.Green || c.Green >= c.Off {
		return ErrInvalidCadence
	}
	return nil
}
