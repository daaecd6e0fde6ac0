// Package devices provides transmitter maintenance subcommands:
// discover reachable starter devices, flash them for identification,
// set the signal volume.
package devices

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/GavinPos/StarterDevices/log"
	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/pkg/transport"
)

var scanWindow string

func NewDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "commands to maintain the starter devices",
	}
	cmd.PersistentFlags().StringVar(&scanWindow,
		"scan-window", "5s", "how long to collect device replies")
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newFlashCmd())
	cmd.AddCommand(newVolumeCmd())
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

func openTransport() (*transport.SerialTransport, error) {
	readTimeout, err := time.ParseDuration(config.SerialTimeout)
	if err != nil {
		return nil, err
	}
	return transport.OpenSerial(config.SerialPort,
		transport.WithBaudRate(config.BaudRate),
		transport.WithReadTimeout(readTimeout))
}

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "lists the starter devices answering on the radio link",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runDiscover()
		},
	}
}

func runDiscover() error {
	window, err := time.ParseDuration(scanWindow)
	if err != nil {
		return err
	}
	tr, err := openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx := context.Background()
	if err := tr.Send(ctx, transport.CmdDiscover); err != nil {
		return err
	}
	seen := map[string]bool{}
	err = tr.ReadLines(ctx, window, func(line string) bool {
		if dev, ok := transport.ParseDiscoverReply(line); ok {
			if !seen[dev] {
				seen[dev] = true
				log.Debug("device answered", log.String("device", dev))
			}
		}
		return false
	})
	if err != nil {
		return err
	}

	devices := make([]string, 0, len(seen))
	for dev := range seen {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	for _, dev := range devices {
		fmt.Println(dev)
	}
	log.Info("discovery finished", log.Int("devices", len(devices)))
	return nil
}

func newFlashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flash",
		Short: "flashes every device's lights for a visual roll call",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runFlash()
		},
	}
}

func runFlash() error {
	window, err := time.ParseDuration(scanWindow)
	if err != nil {
		return err
	}
	tr, err := openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx := context.Background()
	if err := tr.Send(ctx, transport.CmdFlash); err != nil {
		return err
	}
	failed := 0
	err = tr.ReadLines(ctx, window, func(line string) bool {
		dev, ok, matched := transport.ParseFlashReply(line)
		if !matched {
			return false
		}
		if ok {
			fmt.Printf("%s OK\n", dev)
		} else {
			failed++
			fmt.Printf("%s FAIL\n", dev)
		}
		return false
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d device(s) failed to flash", failed)
	}
	return nil
}

func newVolumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volume <0..30>",
		Short: "sets the signal volume on all devices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runVolume(args[0])
		},
	}
}

func runVolume(arg string) error {
	vol, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid volume %q: %w", arg, err)
	}
	line, clamped := transport.VolumeCommand(vol)
	if clamped {
		log.Warn("volume out of range, clamped", log.Int("requested", vol))
	}
	tr, err := openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()
	return tr.Send(context.Background(), line)
}
