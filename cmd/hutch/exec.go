package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hutchlabs/hutch/pkg/types"
)

var execCmd = &cobra.Command{
	Use:   "exec <container-id> <command...>",
	Short: "Run a shell command inside a sandbox container",
	Long: `Run a command inside a running sandbox through "bash -c", so
pipelines and redirection work as in a shell. Stdout and stderr are
kept separate and written to this process's stdout and stderr.

With --detach the command is launched under nohup and not awaited;
launch failures are logged only. Detached commands are fire-and-forget,
so --timeout and --workdir do not apply and are rejected.

Examples:
  hutch exec 3f9a1c git status
  hutch exec 3f9a1c --timeout 30s "make test 2>&1 | tail -20"
  hutch exec 3f9a1c --detach "python server.py"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		detach, _ := cmd.Flags().GetBool("detach")
		workdir, _ := cmd.Flags().GetString("workdir")

		if detach && (cmd.Flags().Changed("timeout") || cmd.Flags().Changed("workdir")) {
			return errors.New("--detach cannot be combined with --timeout or --workdir")
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		id := args[0]
		command := strings.Join(args[1:], " ")

		if detach {
			s.manager.ExecBackground(cmd.Context(), id, command)
			return nil
		}

		result, err := s.manager.Exec(cmd.Context(), id, command, types.ExecOptions{
			Timeout: timeout,
			WorkDir: workdir,
		})
		if err != nil {
			return err
		}

		fmt.Print(result.Stdout)
		fmt.Fprint(os.Stderr, result.Stderr)
		return nil
	},
}

func init() {
	execCmd.Flags().Duration("timeout", 0, "Bound on the whole execution (e.g. 30s); 0 means unbounded")
	execCmd.Flags().Bool("detach", false, "Launch in the background and do not wait")
	execCmd.Flags().String("workdir", "", "Working directory inside the container")
}
