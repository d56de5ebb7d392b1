package main

import (
	"github.com/spf13/cobra"
)

var cpCmd = &cobra.Command{
	Use:   "cp <container-id> <local-path> <container-path>",
	Short: "Copy a local file into a sandbox container",
	Long: `Copy a single local file into a running sandbox. The destination is
the full path the file should have inside the container; its parent
directory must already exist there.

Example:
  hutch cp 3f9a1c ./task.json /workspace/task.json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		return s.manager.CopyFile(cmd.Context(), args[0], args[1], args[2])
	},
}
