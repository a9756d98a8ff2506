package importer

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/notetaker/internal/domain"
)

// Normalize concatenates the note's title and body after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(note domain.Note) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	// Joined with a newline so "ab"+"c" and "a"+"bc" differ.
	return normalizePart(note.Title) + "\n" + normalizePart(note.Body)
}

// Fingerprint returns the SHA-256 of the normalized note as a hex string.
// The ID does not take part.
func Fingerprint(note domain.Note) string {
	hashBytes := sha256.Sum256([]byte(Normalize(note)))
	return fmt.Sprintf("%x", hashBytes)
}
