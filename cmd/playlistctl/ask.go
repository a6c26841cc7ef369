package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagShowHits bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested playlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, cleanup, err := loadToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		answer, err := tk.Answerer.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, answer.Text)
		if flagShowHits {
			fmt.Fprintln(out)
			for _, h := range answer.Hits {
				fmt.Fprintf(out, "  [%.3f] video %d %q %.1fs-%.1fs\n",
					h.Score, h.Segment.SourceIndex, h.Segment.SourceTitle, h.Segment.StartTime, h.Segment.EndTime)
			}
		}
		return nil
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <question>",
	Short: "Show ranked segments for a question without generating an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, cleanup, err := loadToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ret, err := tk.Answerer.Retrieve(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kind: %s  max score: %.3f  out of domain: %t\n",
			ret.Kind, ret.Ranking.MaxScore, ret.Ranking.OutOfDomain)
		for _, h := range ret.Ranking.Hits {
			fmt.Fprintf(out, "  [%.3f] video %d %q %.1fs-%.1fs: %s\n",
				h.Score, h.Segment.SourceIndex, h.Segment.SourceTitle, h.Segment.StartTime, h.Segment.EndTime, h.Segment.Text)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&flagShowHits, "hits", false, "print the segments used as context")
	rootCmd.AddCommand(askCmd, retrieveCmd)
}
