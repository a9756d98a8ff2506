package view

import "github.com/conorfennell/notetaker/internal/domain"

// State is the Edit Buffer mode.
type State int

const (
	// Composing means no note is active; saving creates a new one.
	Composing State = iota
	// Editing means a stored note is loaded and can be updated.
	Editing
)

func (s State) String() string {
	switch s {
	case Composing:
		return "composing"
	case Editing:
		return "editing"
	default:
		return "unknown"
	}
}

// EditBuffer mirrors the form: the title and body fields plus the id of the
// note they were loaded from, if any.
type EditBuffer struct {
	Title    string
	Body     string
	activeID int64
}

// ActiveID reports the active note id and whether one is set.
func (b EditBuffer) ActiveID() (int64, bool) {
	return b.activeID, b.activeID != 0
}

func (b EditBuffer) State() State {
	if b.activeID != 0 {
		return Editing
	}
	return Composing
}

// ShowUpdate reports whether the update control is visible.
func (b EditBuffer) ShowUpdate() bool {
	return b.State() == Editing
}

func (b *EditBuffer) load(n domain.Note) {
	b.Title = n.Title
	b.Body = n.Body
	b.activeID = n.ID
}

func (b *EditBuffer) clear() {
	*b = EditBuffer{}
}

// NoteID is the active id, or 0 while composing.
func (b EditBuffer) NoteID() int64 {
	return b.activeID
}
