package internal

import "strings"

const maxFilenameLen = 100

// SanitizeFilename scrubs a chat title into something safe to use in file
// names across platforms.
func SanitizeFilename(name string) string {
	const invalid = "<>:\"/\\|?*\n\r\t"
	for _, c := range invalid {
		name = strings.ReplaceAll(name, string(c), "_")
	}
	name = strings.Join(strings.Fields(name), " ")
	// truncate on rune boundaries so multi-byte titles stay valid UTF-8
	if runes := []rune(name); len(runes) > maxFilenameLen {
		name = string(runes[:maxFilenameLen-3]) + "..."
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unnamed_Chat"
	}
	return name
}
