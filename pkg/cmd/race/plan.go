package race

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GavinPos/StarterDevices/pkg/model"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "computes handicaps, lanes and the start command without sending anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runPlan()
		},
	}
}

func runPlan() error {
	pr, err := prepare()
	if err != nil {
		return err
	}
	logDiagnostics(pr.diags)

	printStartList(pr.rc.Entries())

	sched, err := pr.rc.Schedule()
	if err != nil {
		return err
	}
	printSchedule(sched)

	fmt.Printf("command: %s", pr.command)
	return nil
}

func printStartList(entries []model.RaceEntry) {
	byDistance := map[string][]model.RaceEntry{}
	var distances []string
	for _, e := range entries {
		if _, ok := byDistance[e.Distance]; !ok {
			distances = append(distances, e.Distance)
		}
		byDistance[e.Distance] = append(byDistance[e.Distance], e)
	}
	sort.Strings(distances)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, dist := range distances {
		group := byDistance[dist]
		sort.Slice(group, func(i, j int) bool {
			return group[i].StartOffset < group[j].StartOffset
		})
		fmt.Fprintf(w, "%sm\t\t\t\t\n", dist)
		fmt.Fprintln(w, "Lane\tAthlete\tPB\tOffset\tDevice")
		for _, e := range group {
			pb := "-"
			if e.HasPB {
				pb = fmt.Sprintf("%.2f", e.PersonalBest)
			}
			dev := e.Device
			if dev == "" {
				dev = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%s\n", e.Lane, e.Name, pb, e.StartOffset, dev)
		}
		fmt.Fprintln(w, "\t\t\t\t")
	}
	w.Flush()
}

func printSchedule(sched model.DeviceSchedule) {
	devices := make([]string, 0, len(sched))
	for dev := range sched {
		devices = append(devices, dev)
	}
	sort.Strings(devices)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Device\tRed\tOrange\tGreen\tOff")
	for _, dev := range devices {
		ts := sched[dev]
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\n",
			dev, ts.RedOn, ts.OrangeOn, ts.GreenOn, ts.Off)
	}
	w.Flush()
}
