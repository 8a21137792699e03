package cmd

import (
	"fmt"
	"os"

	"github.com/mwinter/teams-scrape/internal"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	outputDir string
	headless  bool
	noImages  bool
	baseURL   string
	version   string = "dev"
	commit    string = "unknown"
	date      string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "teams-scrape",
	Short: "Extract chat history from Microsoft Teams",
	Long: `A CLI tool that extracts complete chat histories from the Teams web
client, including messages that are only loaded on demand while scrolling.

It drives a real browser session: you log in interactively, the tool then
walks each selected chat backwards through its history, deduplicates
messages across scroll windows, downloads embedded images, and exports
everything to JSON and CSV.

Quick Start:
  teams-scrape chats                     # Log in and list available chats
  teams-scrape scrape --chats all        # Extract every chat
  teams-scrape scrape --chats 1,3,5-7    # Extract a selection

Re-running against the same output directory only captures messages that
were not seen before.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "teams_export", "Output directory for exported chats")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run the browser headless (login must already be cached in the profile)")
	rootCmd.PersistentFlags().BoolVar(&noImages, "no-images", false, "Skip image downloading")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", internal.DefaultBaseURL, "Teams web client URL")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
