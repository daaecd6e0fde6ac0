// Package race provides the race subcommands: plan a start list, fire
// the start sequence, record results.
package race

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GavinPos/StarterDevices/log"
	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/pkg/model"
	"github.com/GavinPos/StarterDevices/pkg/processing/lanes"
	"github.com/GavinPos/StarterDevices/pkg/race"
	"github.com/GavinPos/StarterDevices/pkg/roster"
	"github.com/GavinPos/StarterDevices/pkg/track"
	"github.com/GavinPos/StarterDevices/pkg/wire"
)

var (
	entriesFile   string
	deviceVolumes []string
)

func NewRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "commands to plan and start a race",
	}
	cmd.PersistentFlags().StringVarP(&entriesFile,
		"entries", "e", "data/entries.yml", "race entries YAML file")
	cmd.PersistentFlags().StringVar(&config.LanePattern,
		"pattern", string(lanes.PatternOutsideIn),
		"lane assignment pattern (outside-in, left-to-right)")
	cmd.PersistentFlags().IntVar(&config.RedSec,
		"red", 5, "seconds from red-on to orange-on")
	cmd.PersistentFlags().IntVar(&config.GreenSec,
		"green", 9, "seconds from red-on to green-on")
	cmd.PersistentFlags().IntVar(&config.OffSec,
		"off", 11, "seconds from red-on to all-off")
	cmd.PersistentFlags().IntVar(&config.DefaultVolume,
		"volume", -1, "default device volume 0..30 (-1: device default)")
	cmd.PersistentFlags().StringSliceVar(&deviceVolumes,
		"device-volume", nil, "per-device volume override, e.g. 03=20 (repeatable)")

	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newResultsCmd())
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func initLogger() {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, parseLogLevel(config.LogLevel, log.InfoLevel))
	default:
		logger = log.DevLogger(os.Stderr, parseLogLevel(config.LogLevel, log.InfoLevel))
	}
	log.ResetDefault(logger)
}

// entriesFileFormat is the on-disk shape of the entries YAML.
type entriesFileFormat struct {
	Entries []entryLine `yaml:"entries"`
}

type entryLine struct {
	Athlete  string `yaml:"athlete"`
	Distance string `yaml:"distance"`
	Lane     int    `yaml:"lane,omitempty"` // 0 on scratch events
}

func loadEntries(path string) ([]entryLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	var ef entriesFileFormat
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("parsing entries: %w", err)
	}
	return ef.Entries, nil
}

func parseVolumes() (wire.Volumes, error) {
	vols := wire.Volumes{PerDevice: map[string]int{}}
	if config.DefaultVolume >= 0 {
		v := config.DefaultVolume
		vols.Default = &v
	}
	for _, spec := range deviceVolumes {
		dev, val, ok := strings.Cut(spec, "=")
		if !ok {
			return vols, fmt.Errorf("invalid device volume %q, want <dev>=<vol>", spec)
		}
		norm, err := model.NormalizeDeviceID(dev)
		if err != nil {
			return vols, err
		}
		vol, err := strconv.Atoi(val)
		if err != nil {
			return vols, fmt.Errorf("invalid volume in %q: %w", spec, err)
		}
		vols.PerDevice[norm] = vol
	}
	return vols, nil
}

// preparedRace is everything the plan and start commands share.
type preparedRace struct {
	rc      *race.Context
	roster  *roster.Roster
	command string
	diags   []model.Diagnostic
}

// prepare runs the whole pipeline up to the encoded command.
func prepare() (*preparedRace, error) {
	ros, err := roster.Load(config.RosterFile)
	if err != nil {
		return nil, err
	}
	topo, err := track.Load(config.TrackFile)
	if err != nil {
		return nil, err
	}
	entryLines, err := loadEntries(entriesFile)
	if err != nil {
		return nil, err
	}
	vols, err := parseVolumes()
	if err != nil {
		return nil, err
	}
	pattern, err := lanes.ParsePattern(config.LanePattern)
	if err != nil {
		return nil, err
	}

	rc, err := race.New(ros.Athletes, topo.Points,
		race.WithCadence(model.Cadence{
			Red:   float64(config.RedSec),
			Green: float64(config.GreenSec),
			Off:   float64(config.OffSec),
		}),
		race.WithVolumes(vols),
		race.WithPattern(pattern))
	if err != nil {
		return nil, err
	}
	for _, line := range entryLines {
		lane := model.ScratchGroup
		if line.Lane > 0 {
			lane = model.LaneIndex(line.Lane)
		}
		if err := rc.Enter(line.Athlete, line.Distance, lane); err != nil {
			return nil, err
		}
	}

	pr := &preparedRace{rc: rc, roster: ros}
	diags, err := rc.ComputeHandicaps()
	if err != nil {
		return nil, err
	}
	pr.diags = append(pr.diags, diags...)

	diags, err = rc.AssignLanes()
	if err != nil {
		return nil, err
	}
	pr.diags = append(pr.diags, diags...)

	_, diags, err = rc.BuildSchedule()
	if err != nil {
		return nil, err
	}
	pr.diags = append(pr.diags, diags...)

	cmd, diags, err := rc.EncodeCommand()
	if err != nil {
		return nil, err
	}
	pr.diags = append(pr.diags, diags...)
	pr.command = cmd
	return pr, nil
}

func logDiagnostics(diags []model.Diagnostic) {
	for _, d := range diags {
		log.Warn("diagnostic",
			log.String("kind", string(d.Kind)),
			log.String("detail", d.Detail))
	}
}
