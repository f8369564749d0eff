package main

import (
	"github.com/spf13/cobra"

	"github.com/signalpost/signalpost/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review suspended posts in a terminal UI",
	Long: `Opens a terminal UI listing every suspended instance. Select one to see
the drafted post, its asset, and its sources, then approve, edit, or
reject it.`,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	return tui.Run(cmd.Context(), rt.engine, rt.store)
}
