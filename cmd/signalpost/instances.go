package main

import (
	"github.com/spf13/cobra"

	"github.com/signalpost/signalpost/internal/instance"
)

var instancesStatus string

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List workflow instances",
	Long: `Lists stored workflow instances, newest first.

Example:
  signalpost instances
  signalpost instances --status suspended`,
	RunE: runInstances,
}

func init() {
	rootCmd.AddCommand(instancesCmd)
	instancesCmd.Flags().StringVar(&instancesStatus, "status", "", "filter by status (running, suspended, committed, rejected, nothing-to-post, failed)")
}

func runInstances(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	instances, err := rt.store.List()
	if err != nil {
		return err
	}
	shown := 0
	for _, in := range instances {
		if instancesStatus != "" && in.Status != instance.Status(instancesStatus) {
			continue
		}
		shown++
		cmd.Printf("%s  %-15s %-8s %s\n",
			in.ID, in.Status, in.Stage, in.UpdatedAt.Local().Format("2006-01-02 15:04"))
		if in.Payload.PostText != "" {
			cmd.Printf("    %s\n", truncateLine(in.Payload.PostText, 100))
		}
	}
	if shown == 0 {
		cmd.Println("no instances")
	}
	return nil
}

func truncateLine(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
