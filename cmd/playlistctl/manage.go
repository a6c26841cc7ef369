package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a playlist is loaded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, cleanup, err := loadToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := tk.Coordinator.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ready: %t\n", st.Ready)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all downloaded, transcribed and indexed data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, cleanup, err := loadToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := tk.Coordinator.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "data reset")
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the videos of the loaded playlist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, cleanup, err := loadToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		sources, err := tk.Coordinator.Sources(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range sources {
			fmt.Fprintf(out, "%3d  %s  %s\n", s.Index, s.Title, s.URL)
		}
		return nil
	},
}

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingest runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, cleanup, err := loadToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := tk.Coordinator.Runs(cmd.Context(), flagRunsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %-8s  %s  processed=%d skipped=%d  %s\n",
				r.CreatedAt.Format(time.RFC3339), r.Phase, r.ID, r.Processed, len(r.Skipped), r.PlaylistURL)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(statusCmd, resetCmd, sourcesCmd, runsCmd)
}
