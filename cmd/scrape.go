package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mwinter/teams-scrape/internal"
	"github.com/mwinter/teams-scrape/internal/export"
	"github.com/spf13/cobra"
)

var (
	chatSelection string
	formats       []string
	profileDir    string
	loginTimeout  time.Duration
	chatBudget    time.Duration
	maxIterations int
	resume        bool
	runStamp      string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract the selected chats and export them",
	Long: `Opens the Teams web client, waits for you to log in, then walks each
selected chat backwards through its full history and exports the messages.

Chats are selected by their position in the chat list, as shown by the
'chats' command:

  teams-scrape scrape --chats all
  teams-scrape scrape --chats 1,3,5-7

A chat that fails mid-extraction still exports the messages collected up
to the failure, and the run continues with the next chat.`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&chatSelection, "chats", "all", "Chats to extract: 'all' or a list like '1,3,5-7'")
	scrapeCmd.Flags().StringSliceVar(&formats, "format", []string{"json", "csv"}, "Export formats (json, csv, jsonl)")
	scrapeCmd.Flags().StringVar(&profileDir, "profile", "", "Browser profile directory (kept across runs so login persists)")
	scrapeCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "How long to wait for interactive login")
	scrapeCmd.Flags().DurationVar(&chatBudget, "chat-budget", 0, "Per-chat time budget (0 = unlimited)")
	scrapeCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Per-chat scroll iteration cap (0 = default)")
	scrapeCmd.Flags().BoolVar(&resume, "resume", true, "Skip messages already captured by earlier runs against this output directory")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exporters := make([]export.Exporter, 0, len(formats))
	for _, f := range formats {
		exp, err := export.NewExporter(f)
		if err != nil {
			return err
		}
		exporters = append(exporters, exp)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	store, err := internal.OpenHashStore(filepath.Join(outputDir, "seen.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	browser, chats, err := openAndList(ctx)
	if err != nil {
		return err
	}
	defer browser.Close()

	selected, err := parseChatSelection(chatSelection, len(chats))
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		internal.PrintWarning("No chats matched the selection")
		return nil
	}

	internal.PrintHeader(fmt.Sprintf("Extracting %d of %d chats", len(selected), len(chats)))

	runStamp = time.Now().Format("20060102_150405")
	runIndex := &internal.RunIndex{StartedAt: time.Now()}
	var failed int

	for _, idx := range selected {
		handle := chats[idx]
		entry := scrapeChat(ctx, browser, store, handle, exporters)
		runIndex.Chats = append(runIndex.Chats, entry)
		if entry.Error != "" && entry.Messages == 0 {
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	runIndex.FinishedAt = time.Now()
	if err := internal.WriteRunIndex(outputDir, runIndex); err != nil {
		internal.PrintWarning(fmt.Sprintf("Could not write run index: %v", err))
	}

	internal.PrintSuccess(fmt.Sprintf("Done: %d chats exported to %s", len(runIndex.Chats)-failed, outputDir))
	if failed > 0 {
		internal.PrintWarning(fmt.Sprintf("%d chats produced no messages", failed))
	}
	return nil
}

// resolveProfileDir picks the browser profile directory. Defaulting under
// the output directory keeps a login performed by one command usable by the
// next one against the same output.
func resolveProfileDir(profile, output string) string {
	if profile != "" {
		return profile
	}
	return filepath.Join(output, "browser_profile")
}

// openAndList launches the browser, waits for login, and discovers the chat
// list. Shared with the chats command.
func openAndList(ctx context.Context) (*internal.Browser, []internal.ChatHandle, error) {
	browser, err := internal.NewBrowser(ctx, internal.BrowserOptions{
		BaseURL:     baseURL,
		Headless:    headless,
		UserDataDir: resolveProfileDir(profileDir, outputDir),
	})
	if err != nil {
		return nil, nil, err
	}

	err = internal.ShowProgress(ctx, "Opening Teams", func() error {
		return browser.Navigate(ctx)
	})
	if err != nil {
		browser.Close()
		return nil, nil, err
	}

	internal.PrintInfo("Waiting for login (complete it in the browser window)...")
	if err := browser.WaitForLogin(ctx, loginTimeout); err != nil {
		browser.Close()
		return nil, nil, err
	}
	internal.PrintSuccess("Logged in")

	var chats []internal.ChatHandle
	err = internal.ShowProgress(ctx, "Discovering chats", func() error {
		var listErr error
		chats, listErr = browser.ListChats(ctx)
		return listErr
	})
	if err != nil {
		browser.Close()
		return nil, nil, err
	}
	if len(chats) == 0 {
		browser.Close()
		return nil, nil, fmt.Errorf("no chats found in the chat list")
	}
	return browser, chats, nil
}

// scrapeChat extracts one chat end to end. Failures are folded into the
// returned index entry; whatever was collected before a failure is still
// exported.
func scrapeChat(ctx context.Context, browser *internal.Browser, store *internal.HashStore, handle internal.ChatHandle, exporters []export.Exporter) internal.ChatIndexEntry {
	chatID := internal.SanitizeFilename(handle.Title)
	entry := internal.ChatIndexEntry{Title: handle.Title}

	var known []string
	if resume {
		var err error
		known, err = store.Load(chatID)
		if err != nil {
			internal.LogWarn("could not load seen hashes for %s: %v", chatID, err)
		}
	}

	session := internal.NewChatSession(chatID, known)

	if err := browser.OpenChat(ctx, handle); err != nil {
		entry.Error = err.Error()
		internal.PrintError(fmt.Sprintf("%s: %v", handle.Title, err))
		return entry
	}

	var resolver *internal.Resolver
	if !noImages {
		resolver = internal.NewResolver(filepath.Join(outputDir, "images"), browser)
	}

	collector := internal.NewCollector(browser, resolver, internal.CollectorOptions{
		MaxIterations: maxIterations,
		ChatBudget:    chatBudget,
	})

	collectErr := internal.ShowProgress(ctx, fmt.Sprintf("Extracting %s", handle.Title), func() error {
		return collector.Collect(ctx, session)
	})

	switch {
	case collectErr == nil:
		internal.PrintSuccess(fmt.Sprintf("%s: %d messages (%d new)", handle.Title, session.MessageCount(), len(session.NewHashes())))
	case errors.Is(collectErr, internal.ErrBudgetExhausted):
		entry.Error = collectErr.Error()
		internal.PrintWarning(fmt.Sprintf("%s: budget exhausted after %d messages, exporting partial history", handle.Title, session.MessageCount()))
	case isContextLost(collectErr):
		entry.Error = collectErr.Error()
		internal.PrintWarning(fmt.Sprintf("%s: chat context lost, exporting %d messages collected so far", handle.Title, session.MessageCount()))
	default:
		entry.Error = collectErr.Error()
		internal.PrintError(fmt.Sprintf("%s: %v", handle.Title, collectErr))
	}

	if session.MessageCount() > 0 {
		if err := writeExports(session, exporters); err != nil {
			internal.PrintError(fmt.Sprintf("%s: %v", handle.Title, err))
			if entry.Error == "" {
				entry.Error = err.Error()
			}
		}
		if err := store.Append(chatID, session.NewHashes()); err != nil {
			internal.LogWarn("could not persist hashes for %s: %v", chatID, err)
		}
	}

	entry.Messages = session.MessageCount()
	entry.NewMessages = len(session.NewHashes())
	entry.ImagesResolved = session.ImageStats.Resolved
	entry.ImagesFailed = session.ImageStats.Failed
	entry.Aborted = session.Aborted
	return entry
}

func writeExports(session *internal.ChatSession, exporters []export.Exporter) error {
	for _, exp := range exporters {
		name := session.ChatID
		if runStamp != "" {
			name += "_" + runStamp
		}
		path := filepath.Join(outputDir, name+"."+exp.Extension())
		f, err := os.Create(path)
		if err != nil {
			return &internal.ExportError{Format: exp.Extension(), Path: path, Err: err}
		}
		expErr := exp.Export(session, f)
		closeErr := f.Close()
		if expErr != nil {
			return &internal.ExportError{Format: exp.Extension(), Path: path, Err: expErr}
		}
		if closeErr != nil {
			return &internal.ExportError{Format: exp.Extension(), Path: path, Err: closeErr}
		}
	}
	return nil
}

// parseChatSelection turns a selection like "1,3,5-7" (1-based, as printed
// by the chats command) into sorted zero-based indexes. "all" selects every
// chat.
func parseChatSelection(sel string, total int) ([]int, error) {
	sel = strings.TrimSpace(strings.ToLower(sel))
	if sel == "" || sel == "all" {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	picked := make(map[int]bool)
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if dash := strings.Index(part, "-"); dash > 0 {
			lo, hi = part[:dash], part[dash+1:]
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid chat selection %q", part)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid chat selection %q", part)
		}
		if start > end {
			return nil, fmt.Errorf("invalid chat range %q", part)
		}
		for n := start; n <= end; n++ {
			if n < 1 || n > total {
				return nil, fmt.Errorf("chat %d is out of range (1-%d)", n, total)
			}
			picked[n-1] = true
		}
	}

	out := make([]int, 0, len(picked))
	for i := range picked {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

func isContextLost(err error) bool {
	var lost *internal.ContextLostError
	return errors.As(err, &lost)
}
