/*
	Copyright 2025 Gavin Postlethwaite
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	devicesCmd "github.com/GavinPos/StarterDevices/pkg/cmd/devices"
	historyCmd "github.com/GavinPos/StarterDevices/pkg/cmd/history"
	raceCmd "github.com/GavinPos/StarterDevices/pkg/cmd/race"
	trackCmd "github.com/GavinPos/StarterDevices/pkg/cmd/track"
	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/version"
)

const envPrefix = "STARTER"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "starter",
	Short:   "Host controller for the starter device transmitter",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.starter.yml)")

	rootCmd.PersistentFlags().StringVar(&config.SerialPort, "serial-port",
		"",
		"serial port of the transmitter (auto-detected when empty)")
	rootCmd.PersistentFlags().IntVar(&config.BaudRate, "baud-rate",
		115200,
		"serial baud rate")
	rootCmd.PersistentFlags().StringVar(&config.SerialTimeout, "serial-timeout",
		"1s",
		"read timeout for a single serial line")
	rootCmd.PersistentFlags().StringVar(&config.RosterFile, "roster",
		"data/athletes.csv",
		"athletes CSV file")
	rootCmd.PersistentFlags().StringVar(&config.TrackFile, "track",
		"data/track.yml",
		"track topology YAML file")
	rootCmd.PersistentFlags().StringVar(&config.HistoryDir, "history-dir",
		"data/history",
		"directory of the session history store")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat, "log-format",
		"text",
		"controls the log output format (text, json)")

	// add commands here
	rootCmd.AddCommand(raceCmd.NewRaceCmd())
	rootCmd.AddCommand(trackCmd.NewTrackCmd())
	rootCmd.AddCommand(devicesCmd.NewDevicesCmd())
	rootCmd.AddCommand(historyCmd.NewHistoryCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".starter" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".starter")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --serial-port to STARTER_SERIAL_PORT
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
