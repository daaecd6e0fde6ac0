package race

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GavinPos/StarterDevices/log"
	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/pkg/history"
	"github.com/GavinPos/StarterDevices/pkg/roster"
)

var (
	sessionID    string
	finishSpecs  []string
	dqAthletes   []string
	updateRoster bool
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "records finish times for a dispatched session",
		Long: `Records finish times against a session from the history store.
Actual time is finish minus the athlete's start offset; a strictly
faster actual time becomes the athlete's new personal best.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runResults()
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (defaults to the latest)")
	cmd.Flags().StringSliceVar(&finishSpecs, "finish", nil,
		"finish time, e.g. A=13.35 (repeatable)")
	cmd.Flags().StringSliceVar(&dqAthletes, "dq", nil, "disqualified athlete id (repeatable)")
	cmd.Flags().BoolVar(&updateRoster, "update-roster", false,
		"write new personal bests back to the roster CSV")
	return cmd
}

func runResults() error {
	store, err := history.Open(config.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := resolveSession(store)
	if err != nil {
		return err
	}
	ros, err := roster.Load(config.RosterFile)
	if err != nil {
		return err
	}

	for _, spec := range finishSpecs {
		id, val, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("invalid finish %q, want <athlete>=<seconds>", spec)
		}
		finish, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid finish time in %q: %w", spec, err)
		}
		if err := rec.RecordFinish(id, finish); err != nil {
			return err
		}
	}
	for _, id := range dqAthletes {
		if err := rec.Disqualify(id); err != nil {
			return err
		}
	}

	for gi := range rec.Groups {
		group := &rec.Groups[gi]
		for ri := range group.Results {
			res := &group.Results[ri]
			if res.DQ || res.Finish == 0 {
				continue
			}
			improved, err := ros.RecordResult(res.AthleteID, group.Distance, res.Actual)
			if err != nil {
				return err
			}
			res.NewPB = improved
			if improved {
				log.Info("new personal best",
					log.String("athlete", res.AthleteID),
					log.String("distance", group.Distance),
					log.Float64("time", res.Actual))
			}
		}
	}

	if err := store.Put(rec); err != nil {
		return err
	}
	if updateRoster {
		if err := ros.Save(config.RosterFile); err != nil {
			return err
		}
		log.Info("roster updated", log.String("file", config.RosterFile))
	}
	return nil
}

func resolveSession(store *history.Store) (*history.SessionRecord, error) {
	if sessionID != "" {
		return store.Get(strings.TrimSpace(sessionID))
	}
	sessions, err := store.List()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("history is empty")
	}
	return sessions[0], nil
}
