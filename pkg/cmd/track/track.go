// Package track provides the topology subcommands: define start points
// and bind starter devices to lanes.
package track

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/pkg/track"
)

func NewTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "commands to manage the track topology",
	}
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newBindCmd())
	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <distance>[:lanes] ...",
		Short: "creates or replaces start points, e.g. 100:6 200:6 800",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args)
		},
	}
}

func runInit(args []string) error {
	tp, err := loadOrEmpty()
	if err != nil {
		return err
	}
	for _, arg := range args {
		dist, lanesPart, hasLanes := strings.Cut(arg, ":")
		numLanes := 0
		if hasLanes {
			numLanes, err = strconv.Atoi(lanesPart)
			if err != nil {
				return fmt.Errorf("invalid lane count in %q: %w", arg, err)
			}
		}
		if err := tp.Define(dist, numLanes); err != nil {
			return err
		}
	}
	return tp.Save(config.TrackFile)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "prints the configured start points and device bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow()
		},
	}
}

func runShow() error {
	tp, err := track.Load(config.TrackFile)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Distance\tLanes\tBindings")
	for _, sp := range tp.Points {
		if sp.HasLanes {
			var parts []string
			lanes := make([]int, 0, len(sp.LaneDevices))
			for lane := range sp.LaneDevices {
				lanes = append(lanes, lane)
			}
			sort.Ints(lanes)
			for _, lane := range lanes {
				parts = append(parts, fmt.Sprintf("%d=%s", lane, sp.LaneDevices[lane]))
			}
			fmt.Fprintf(w, "%sm\t%d\t%s\n", sp.Distance, sp.NumLanes, strings.Join(parts, " "))
		} else {
			fmt.Fprintf(w, "%sm\tscratch\t%s\n", sp.Distance, strings.Join(sp.GroupDevices, " "))
		}
	}
	return w.Flush()
}

func newBindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bind <distance> <binding> ...",
		Short: "rebinds devices to a start point, e.g. bind 100 1=01 2=02, or bind 800 07 09",
		Long: `Replaces all device bindings of one start point. Laned points take
lane=device pairs, scratch points a plain device list. Bindings not
mentioned are removed.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBind(args[0], args[1:])
		},
	}
}

func runBind(distance string, bindings []string) error {
	tp, err := track.Load(config.TrackFile)
	if err != nil {
		return err
	}
	laneDevices := map[int]string{}
	var groupDevices []string
	for _, b := range bindings {
		lanePart, dev, isPair := strings.Cut(b, "=")
		if isPair {
			lane, err := strconv.Atoi(lanePart)
			if err != nil {
				return fmt.Errorf("invalid lane in %q: %w", b, err)
			}
			laneDevices[lane] = dev
		} else {
			groupDevices = append(groupDevices, b)
		}
	}
	if len(laneDevices) > 0 && len(groupDevices) > 0 {
		return fmt.Errorf("mixing lane=device pairs and plain device ids")
	}
	if err := tp.Bind(distance, laneDevices, groupDevices); err != nil {
		return err
	}
	return tp.Save(config.TrackFile)
}

func loadOrEmpty() (*track.Topology, error) {
	tp, err := track.Load(config.TrackFile)
	if err == nil {
		return tp, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &track.Topology{}, nil
	}
	return nil, err
}
