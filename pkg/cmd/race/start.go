package race

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/GavinPos/StarterDevices/log"
	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/pkg/history"
	"github.com/GavinPos/StarterDevices/pkg/race"
	"github.com/GavinPos/StarterDevices/pkg/transport"
	"github.com/GavinPos/StarterDevices/pkg/trigger"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "plans the race and fires the start sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runStart()
		},
	}
	cmd.Flags().StringVar(&config.AckTimeout,
		"ack-timeout", "10s", "max wait for the countdown acknowledgment")
	cmd.Flags().StringVar(&config.TriggerAddr,
		"trigger-addr", trigger.DefaultAddr, "address of the timing capture listener")
	cmd.Flags().StringVar(&config.TriggerPayload,
		"trigger-payload", trigger.DefaultPayload, "payload sent to the timing capture listener")
	return cmd
}

func runStart() error {
	pr, err := prepare()
	if err != nil {
		return err
	}
	logDiagnostics(pr.diags)

	readTimeout, err := time.ParseDuration(config.SerialTimeout)
	if err != nil {
		return err
	}
	ackTimeout, err := time.ParseDuration(config.AckTimeout)
	if err != nil {
		return err
	}

	tr, err := transport.OpenSerial(config.SerialPort,
		transport.WithBaudRate(config.BaudRate),
		transport.WithReadTimeout(readTimeout))
	if err != nil {
		return err
	}
	defer tr.Close()

	notifier := trigger.New(config.TriggerAddr,
		trigger.WithPayload([]byte(config.TriggerPayload)))

	dp := race.NewDispatcher(tr, notifier, race.WithAckTimeout(ackTimeout))
	defer dp.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startedAt := time.Now()
	if err := dp.Dispatch(ctx, pr.rc); err != nil {
		return err
	}

	return appendHistory(pr, startedAt)
}

func appendHistory(pr *preparedRace, startedAt time.Time) error {
	store, err := history.Open(config.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := history.NewSessionRecord(pr.rc.Entries(), pr.command, startedAt)
	if err != nil {
		return err
	}
	if err := store.Put(rec); err != nil {
		return err
	}
	log.Info("session recorded", log.String("session", rec.ID))
	return nil
}
