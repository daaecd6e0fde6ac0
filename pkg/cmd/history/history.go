// Package history provides the session history subcommands: list and
// inspect past races, serve them over HTTP.
package history

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/GavinPos/StarterDevices/log"
	"github.com/GavinPos/StarterDevices/pkg/config"
	"github.com/GavinPos/StarterDevices/pkg/history"
)

var listenAddr string

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "commands to browse past race sessions",
	}
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newServeCmd())
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

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runList()
		},
	}
}

func runList() error {
	store, err := history.Open(config.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Started\tSession\tDistances\tAthletes")
	for _, rec := range sessions {
		athletes := 0
		dists := ""
		for _, g := range rec.Groups {
			athletes += len(g.Results)
			if dists != "" {
				dists += ","
			}
			dists += g.Distance
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"), rec.ID, dists, athletes)
	}
	return w.Flush()
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "prints one session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runShow(args[0])
		},
	}
}

func runShow(id string) error {
	store, err := history.Open(config.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serves the session history over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger()
			return runServe()
		},
	}
	cmd.Flags().StringVar(&listenAddr, "addr", "localhost:8080", "HTTP listen address")
	return cmd
}

func runServe() error {
	store, err := history.Open(config.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/sessions", func(w http.ResponseWriter, req *http.Request) {
		sessions, err := store.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, sessions)
	})
	r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec, err := store.Get(chi.URLParam(req, "id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, rec)
	})

	log.Info("serving session history", log.String("addr", listenAddr))
	return http.ListenAndServe(listenAddr, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("writing response", log.ErrorField(err))
	}
}
