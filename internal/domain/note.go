package domain

// Note is a single title/body pair persisted as one record.
// ID is assigned by the store on creation and never changes afterwards.
type Note struct {
	ID    int64  `json:"id"`
	Title string `json:"noteTitle"`
	Body  string `json:"noteBody"`
}
