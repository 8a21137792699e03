package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("105")).
			Bold(true).
			Underline(true)
)

// PrintSuccess prints a success message with styling
func PrintSuccess(message string) {
	fmt.Println(successStyle.Render("✓ " + message))
}

// PrintError prints an error message with styling
func PrintError(message string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+message))
}

// PrintWarning prints a warning message with styling
func PrintWarning(message string) {
	fmt.Println(warningStyle.Render("⚠ " + message))
}

// PrintInfo prints an informational message with styling
func PrintInfo(message string) {
	fmt.Println(infoStyle.Render(message))
}

// PrintHeader prints a section header with styling
func PrintHeader(message string) {
	fmt.Println(headerStyle.Render(message))
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ShowProgress runs fn while animating a spinner next to message. When
// stdout is not a terminal the spinner is suppressed and only the message
// is printed.
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(os.Stdout) {
		fmt.Println(message + "...")
		return fn()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case err := <-done:
			fmt.Printf("\r\033[K")
			return err
		case <-ctx.Done():
			fmt.Printf("\r\033[K")
			return <-done
		case <-ticker.C:
			fmt.Printf("\r%s %s", infoStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), message)
			frame++
		}
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
