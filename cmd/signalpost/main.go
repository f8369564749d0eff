// Command signalpost turns a batch of URLs into an approved, scheduled
// social media post. Runs suspend for human review; the review or resume
// commands deliver the verdict.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "signalpost",
	Short: "Draft, review, and publish social posts from source links",
	Long: `signalpost extracts content from URLs, filters what was already posted
or is off topic, drafts a platform-sized post, and suspends for review.
Approved posts publish to every configured platform exactly once.

State lives under .signalpost/ in the project directory.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
