package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <build-context-dir>",
	Short: "Build an image and start a sandbox container from it",
	Long: `Build an image from a directory containing a Dockerfile, then create
and start a sandbox container on the least-loaded endpoint.

The container id is printed on success. With a state file configured,
the assignment is journaled so a later "hutch cleanup" can find it.

Examples:
  # Build and run from ./sandbox, image named after the directory
  hutch run ./sandbox

  # Explicit image name
  hutch run ./sandbox --image agent-env`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imageName, _ := cmd.Flags().GetString("image")

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		id, err := s.manager.RunContainer(cmd.Context(), args[0], imageName)
		if err != nil {
			return err
		}

		fmt.Println(id)
		return nil
	},
}

func init() {
	runCmd.Flags().String("image", "", "Image name (defaults to the directory's base name)")
}
