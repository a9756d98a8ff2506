package notes

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/storage"
)

var (
	ErrValidation     = errors.New("invalid note")
	ErrNotFound       = errors.New("note not found")
	ErrDuplicateTitle = errors.New("a note with this title already exists")
)

// Input is the user-editable part of a note.
type Input struct {
	Title string `validate:"required"`
	Body  string
}

// Repository maps note operations onto a storage.Gateway.
type Repository struct {
	gw       storage.Gateway
	validate *validator.Validate
}

func NewRepository(gw storage.Gateway) *Repository {
	return &Repository{gw: gw, validate: validator.New()}
}

// Create stores a new note. An empty title is rejected before the gateway
// is touched.
func (r *Repository) Create(ctx context.Context, title, body string) (domain.Note, error) {
	in := Input{Title: title, Body: body}
	if err := r.check(in); err != nil {
		return domain.Note{}, err
	}

	note := domain.Note{Title: in.Title, Body: in.Body}
	id, err := r.gw.Add(ctx, note)
	if err != nil {
		return domain.Note{}, translate(err, "create note")
	}
	note.ID = id
	return note, nil
}

// Read returns the note with the given id.
func (r *Repository) Read(ctx context.Context, id int64) (domain.Note, error) {
	note, err := r.gw.Get(ctx, id)
	if err != nil {
		return domain.Note{}, translate(err, fmt.Sprintf("read note %d", id))
	}
	return note, nil
}

// Update overwrites title and body of an existing note, keeping its id.
func (r *Repository) Update(ctx context.Context, id int64, title, body string) (domain.Note, error) {
	in := Input{Title: title, Body: body}
	if err := r.check(in); err != nil {
		return domain.Note{}, err
	}

	note, err := r.gw.Get(ctx, id)
	if err != nil {
		return domain.Note{}, translate(err, fmt.Sprintf("update note %d", id))
	}
	note.Title = in.Title
	note.Body = in.Body
	if err := r.gw.Put(ctx, note); err != nil {
		return domain.Note{}, translate(err, fmt.Sprintf("update note %d", id))
	}
	return note, nil
}

// Delete removes a note. Deleting a missing note succeeds.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.gw.Delete(ctx, id); err != nil {
		return translate(err, fmt.Sprintf("delete note %d", id))
	}
	return nil
}

// ListAll yields every stored note in table order.
func (r *Repository) ListAll(ctx context.Context) iter.Seq2[domain.Note, error] {
	return r.gw.Scan(ctx)
}

func (r *Repository) check(in Input) error {
	if err := r.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s is %s", ErrValidation, fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// translate maps gateway errors onto the repository's error set.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrConstraint):
		return fmt.Errorf("%s: %w", op, ErrDuplicateTitle)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
