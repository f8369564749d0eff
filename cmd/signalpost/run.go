package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalpost/signalpost/internal/instance"
)

var (
	runSkipDedup     bool
	runSkipRelevance bool
	runTextOnly      bool
	runAccount       string
	runSchedule      string
)

var runCmd = &cobra.Command{
	Use:   "run URL [URL...]",
	Short: "Start a workflow over one or more source links",
	Long: `Extracts each link, filters duplicates and off-topic sources, drafts a
post, and suspends for review. Use 'signalpost review' or
'signalpost resume' to deliver the verdict.

Example:
  signalpost run https://github.com/org/repo https://example.com/blog-post
  signalpost run --text-only --schedule "2026-03-02T18:00" https://example.com/post`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runSkipDedup, "skip-dedup", false, "process links even if they were posted before")
	runCmd.Flags().BoolVar(&runSkipRelevance, "skip-relevance-check", false, "skip the business relevance gate")
	runCmd.Flags().BoolVar(&runTextOnly, "text-only", false, "do not attach an image")
	runCmd.Flags().StringVar(&runAccount, "account", "", "target account override")
	runCmd.Flags().StringVar(&runSchedule, "schedule", "", "publish time (RFC 3339 or 2006-01-02T15:04, local)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	overrides := instance.Overrides{
		SkipDedup:          runSkipDedup,
		SkipRelevanceCheck: runSkipRelevance,
		TextOnly:           runTextOnly,
		TargetAccount:      runAccount,
	}
	if runSchedule != "" {
		when, err := parseSchedule(runSchedule)
		if err != nil {
			return err
		}
		overrides.ScheduleTime = &when
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	in, err := rt.engine.Start(ctx, args, overrides)
	if err != nil {
		return err
	}
	printInstance(cmd, in)
	return nil
}

func parseSchedule(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if when, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return when, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse schedule %q", raw)
}

func printInstance(cmd *cobra.Command, in instance.Instance) {
	cmd.Printf("instance %s: %s (%s)\n", in.ID, in.Status, in.Stage)
	if in.StatusNote != "" {
		cmd.Printf("  %s\n", in.StatusNote)
	}
	if in.Payload.PostText != "" {
		cmd.Printf("  post: %s\n", in.Payload.PostText)
	}
	if in.Payload.Asset != nil {
		cmd.Printf("  asset: %s\n", in.Payload.Asset.URL)
	}
	for _, failed := range in.Payload.FailedLinks {
		cmd.Printf("  failed: %s (%s)\n", failed.Link, failed.Reason)
	}
	if in.Suspended() {
		cmd.Printf("  next: signalpost review, or signalpost resume %s --decision approve\n", in.ID)
	}
}
