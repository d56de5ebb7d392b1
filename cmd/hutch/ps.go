package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers across all endpoints",
	Long: `List containers on every configured endpoint. By default only
running containers are shown; --all includes stopped ones.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONTAINER ID\tIMAGE\tSTATE\tSTATUS\tENDPOINT")

		for i, endpoint := range s.manager.Endpoints() {
			eng, err := s.manager.EngineAt(i)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s unreachable: %v\n", endpoint, err)
				continue
			}
			summaries, err := eng.ListContainers(cmd.Context(), all)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: listing on %s failed: %v\n", endpoint, err)
				continue
			}
			for _, c := range summaries {
				id := c.ID
				if len(id) > 12 {
					id = id[:12]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, c.Image, c.State, c.Status, endpoint)
			}
		}

		return w.Flush()
	},
}

func init() {
	psCmd.Flags().BoolP("all", "a", false, "Include stopped containers")
}
