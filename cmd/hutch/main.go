package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hutchlabs/hutch/pkg/config"
	"github.com/hutchlabs/hutch/pkg/engine"
	"github.com/hutchlabs/hutch/pkg/fleet"
	"github.com/hutchlabs/hutch/pkg/log"
	"github.com/hutchlabs/hutch/pkg/metrics"
	"github.com/hutchlabs/hutch/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hutch",
	Short: "Hutch - disposable sandbox fleet manager",
	Long: `Hutch provisions disposable, isolated execution sandboxes for
autonomous coding agents, spreading load across one or more container
engine daemons.

Endpoints come from --endpoints, a config file, or the DOCKER_ENDPOINTS
environment variable (comma-separated); with none of those set, the
local daemon socket is used.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Hutch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("endpoints", "", "Comma-separated daemon endpoints")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// session bundles everything one CLI invocation needs and tears it
// down again.
type session struct {
	cfg     *config.Config
	manager *fleet.Manager
	journal *storage.Store
}

// openSession loads configuration, initializes logging and metrics,
// and constructs the fleet manager. Callers must defer close.
func openSession(cmd *cobra.Command) (*session, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if eps, _ := cmd.Flags().GetString("endpoints"); eps != "" {
		cfg.Endpoints = nil
		for _, ep := range strings.Split(eps, ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				cfg.Endpoints = append(cfg.Endpoints, ep)
			}
		}
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	s := &session{cfg: cfg}

	if cfg.StateFile != "" {
		s.journal, err = storage.Open(cfg.StateFile)
		if err != nil {
			return nil, err
		}
	}

	opts := []fleet.Option{
		fleet.WithBuildTimeout(cfg.BuildTimeout),
		fleet.WithStopGrace(cfg.StopGrace),
		fleet.WithExecTimeout(cfg.ExecTimeout),
	}
	if s.journal != nil {
		opts = append(opts, fleet.WithJournal(s.journal))
	}

	s.manager, err = fleet.NewManager(cfg.Endpoints, engine.Dialer, opts...)
	if err != nil {
		if s.journal != nil {
			s.journal.Close()
		}
		return nil, err
	}
	return s, nil
}

// close releases clients and the journal on every exit path.
func (s *session) close() {
	if s.manager != nil {
		if err := s.manager.Close(); err != nil {
			log.Logger.Warn().Err(err).Msg("failed to close engine clients")
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Logger.Warn().Err(err).Msg("failed to close state file")
		}
	}
}
