package notes

const (
	// MaxTitleLength is the number of title characters shown in the list.
	MaxTitleLength = 16
	// MaxBodyLength is the number of body characters shown in the list.
	MaxBodyLength = 25
	// Ellipsis marks a shortened string.
	Ellipsis = "..."
)

// Truncate returns text unchanged when it has at most maxLen characters,
// otherwise its first maxLen characters followed by Ellipsis.
func Truncate(text string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + Ellipsis
}

// ShortTitle shortens a title for display in the note list.
func ShortTitle(title string) string {
	return Truncate(title, MaxTitleLength)
}

// ShortBody shortens a body for display in the note list.
func ShortBody(body string) string {
	return Truncate(body, MaxBodyLength)
}
