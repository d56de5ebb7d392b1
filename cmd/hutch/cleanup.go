package main

import (
	"github.com/spf13/cobra"

	"github.com/hutchlabs/hutch/pkg/reaper"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove orphaned sandboxes and optionally prune the engines",
	Long: `Remove sandbox containers recorded in the state file that no live
process is tracking. With --system, additionally run engine-wide
maintenance on every endpoint: remove dead containers, prune unused
networks, prune all unused images and the build cache. Sandbox images
are rebuilt on demand, so pruning them only costs the next build.

Examples:
  hutch cleanup
  hutch cleanup --system`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		system, _ := cmd.Flags().GetBool("system")

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		r := reaper.New(s.manager, s.journal)
		if err := r.ReapOrphans(cmd.Context()); err != nil {
			return err
		}
		if system {
			return r.SystemCleanup(cmd.Context())
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Bool("system", false, "Also prune containers, networks, images and build cache engine-wide")
}
