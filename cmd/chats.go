package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mwinter/teams-scrape/internal"
	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List the chats available for extraction",
	Long: `Opens the Teams web client, waits for you to log in, and prints the chat
list with the numbers accepted by 'scrape --chats'.`,
	RunE: runChats,
}

func init() {
	rootCmd.AddCommand(chatsCmd)

	chatsCmd.Flags().StringVar(&profileDir, "profile", "", "Browser profile directory (kept across runs so login persists)")
	chatsCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "How long to wait for interactive login")
}

func runChats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	browser, chats, err := openAndList(ctx)
	if err != nil {
		return err
	}
	defer browser.Close()

	internal.PrintHeader(fmt.Sprintf("Found %d chats", len(chats)))
	for _, c := range chats {
		fmt.Printf("  %3d. %s\n", c.Index+1, c.Title)
	}
	internal.PrintInfo("\nExtract with: teams-scrape scrape --chats 1,3,5-7")
	return nil
}
