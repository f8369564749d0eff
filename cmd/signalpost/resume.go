package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalpost/signalpost/internal/instance"
)

var (
	resumeDecision   string
	resumeText       string
	resumeAccount    string
	resumeSchedule   string
	resumeDropAsset  bool
	resumeRegenerate bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume INSTANCE_ID",
	Short: "Deliver a review decision to a suspended instance",
	Long: `Routes the decision for a suspended instance: approve publishes and
records the sources, edit installs replacement text and suspends again,
reject terminates without side effects.

Example:
  signalpost resume 2f6b1c8e --decision approve
  signalpost resume 2f6b1c8e --decision edit --text "sharper wording"
  signalpost resume 2f6b1c8e --decision reject`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringVar(&resumeDecision, "decision", "", "approve, edit, or reject (required)")
	resumeCmd.Flags().StringVar(&resumeText, "text", "", "replacement post text (edit only)")
	resumeCmd.Flags().StringVar(&resumeAccount, "account", "", "target account override")
	resumeCmd.Flags().StringVar(&resumeSchedule, "schedule", "", "publish time (RFC 3339 or 2006-01-02T15:04, local)")
	resumeCmd.Flags().BoolVar(&resumeDropAsset, "drop-asset", false, "publish without the selected image")
	resumeCmd.Flags().BoolVar(&resumeRegenerate, "regenerate", false, "draft fresh text instead of keeping the edit (edit only)")
	resumeCmd.MarkFlagRequired("decision")
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resolution := instance.Resolution{
		Decision:   instance.Decision(resumeDecision),
		EditedText: resumeText,
		Regenerate: resumeRegenerate,
		Account:    resumeAccount,
		DropAsset:  resumeDropAsset,
	}
	if !resolution.Decision.Valid() {
		return fmt.Errorf("decision must be approve, edit, or reject")
	}
	if resumeSchedule != "" {
		when, err := parseSchedule(resumeSchedule)
		if err != nil {
			return err
		}
		resolution.ScheduleAt = &when
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	in, err := rt.engine.Resume(ctx, matchInstanceID(rt, args[0]), resolution)
	if err != nil {
		return err
	}
	printInstance(cmd, in)
	for _, result := range in.Payload.Results {
		if result.OK {
			cmd.Printf("  published: %s\n", result.Platform)
		} else {
			cmd.Printf("  failed: %s (%s)\n", result.Platform, result.Err)
		}
	}
	return nil
}

// matchInstanceID accepts an ID prefix when it is unambiguous.
func matchInstanceID(rt *runtime, raw string) string {
	instances, err := rt.store.List()
	if err != nil {
		return raw
	}
	match := raw
	count := 0
	for _, in := range instances {
		if in.ID == raw {
			return raw
		}
		if len(raw) >= 4 && len(in.ID) > len(raw) && in.ID[:len(raw)] == raw {
			match = in.ID
			count++
		}
	}
	if count == 1 {
		return match
	}
	return raw
}
