package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/notetaker/internal/domain"
)

const (
	titlePrefix = "# "
	separator   = "---"

	// maxLineLength bounds a single line; note bodies are often one long paragraph.
	maxLineLength = 4 * 1024 * 1024
)

type state int

const (
	seeking state = iota
	readingBody
)

// ParseFile reads a file from the given path and extracts all notes.
func ParseFile(path string) ([]domain.Note, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all notes. A "# " heading
// starts a note, the lines after it are its body, and a "---" line ends it.
// Text outside a note is ignored. The returned notes have no ID.
func Parse(r io.Reader) ([]domain.Note, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	var notes []domain.Note
	var currentNote domain.Note
	var currentBlock []string
	currentState := seeking

	finishNote := func() {
		if currentState == readingBody {
			currentNote.Body = strings.TrimSpace(strings.Join(currentBlock, "\n"))
			if currentNote.Title != "" {
				notes = append(notes, currentNote)
			}
		}
		currentNote = domain.Note{}
		currentBlock = nil
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishNote()
			continue
		}

		if strings.HasPrefix(line, titlePrefix) || line == "#" {
			finishNote() // A new heading always starts a new note
			currentState = readingBody
			currentNote.Title = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			continue
		}

		if currentState == readingBody {
			currentBlock = append(currentBlock, line)
		}
	}

	finishNote() // Finish the very last note in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}
