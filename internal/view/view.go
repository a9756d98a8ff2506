// Package view holds the state the note widget renders: the list rows built
// from the last full scan, the Edit Buffer, and a pending notice.
package view

import (
	"context"
	"iter"

	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/notes"
)

// Row is one rendered entry of the note list.
type Row struct {
	ID         int64
	Title      string
	ShortTitle string
	ShortBody  string
}

// Notice is a user-visible message, shown once.
type Notice struct {
	Title string
	Text  string
}

// Page is an immutable snapshot of everything the widget shows.
type Page struct {
	Rows   []Row
	Buffer EditBuffer
	Notice *Notice
}

// Synchronizer owns the view state. It is not safe for concurrent use;
// callers serialize access.
type Synchronizer struct {
	rows   []Row
	buffer EditBuffer
	notice *Notice
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// RenderList rebuilds the rows from a full scan. The previous rows are kept
// if the scan fails part way.
func (s *Synchronizer) RenderList(seq iter.Seq2[domain.Note, error]) error {
	rows := []Row{}
	for n, err := range seq {
		if err != nil {
			return err
		}
		rows = append(rows, Row{
			ID:         n.ID,
			Title:      n.Title,
			ShortTitle: notes.ShortTitle(n.Title),
			ShortBody:  notes.ShortBody(n.Body),
		})
	}
	s.rows = rows
	return nil
}

// LoadIntoEditBuffer puts note in the form and makes it the active note.
func (s *Synchronizer) LoadIntoEditBuffer(note domain.Note) {
	s.buffer.load(note)
}

// ClearEditBuffer empties the form and returns to composing.
func (s *Synchronizer) ClearEditBuffer() {
	s.buffer.clear()
}

// SetFields records the values currently typed into the form.
func (s *Synchronizer) SetFields(title, body string) {
	s.buffer.Title = title
	s.buffer.Body = body
}

// Row looks up a rendered row by note id.
func (s *Synchronizer) Row(id int64) (Row, bool) {
	for _, r := range s.rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// RowCount is the number of rows from the last successful render.
func (s *Synchronizer) RowCount() int {
	return len(s.rows)
}

// Buffer returns a copy of the Edit Buffer.
func (s *Synchronizer) Buffer() EditBuffer {
	return s.buffer
}

// Notify queues a notice for the next snapshot.
func (s *Synchronizer) Notify(_ context.Context, title, text string) {
	s.notice = &Notice{Title: title, Text: text}
}

// Snapshot returns the current page and consumes the pending notice.
func (s *Synchronizer) Snapshot() Page {
	rows := make([]Row, len(s.rows))
	copy(rows, s.rows)
	p := Page{Rows: rows, Buffer: s.buffer, Notice: s.notice}
	s.notice = nil
	return p
}
