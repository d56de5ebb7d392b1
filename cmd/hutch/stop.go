package main

import (
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <container-id>...",
	Short: "Stop and remove sandbox containers",
	Long: `Stop and remove one or more sandbox containers. Stopping a container
that is already gone is not an error.

Example:
  hutch stop 3f9a1c 8b02de`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		for _, id := range args {
			if err := s.manager.Stop(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}
