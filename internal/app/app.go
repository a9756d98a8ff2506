// Package app is the note widget's event router. App owns the database
// handle, the repository and the view state, and turns each UI event into
// one repository call followed by a view update.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/logger"
	"github.com/conorfennell/notetaker/internal/metrics"
	"github.com/conorfennell/notetaker/internal/notes"
	"github.com/conorfennell/notetaker/internal/storage"
	"github.com/conorfennell/notetaker/internal/view"
)

var ErrNoActiveNote = errors.New("no note is open for editing")

const (
	duplicateTitle = "DUPLICATE TITLE DETECTED"
	duplicateText  = "Each title must be unique. Try saving the note again with a different title."
)

// Opener opens the notes database. It is called at startup and again after
// a reset.
type Opener func(ctx context.Context) (storage.Gateway, error)

type App struct {
	// mu is held for the whole of every action so UI events are handled
	// one at a time.
	mu sync.Mutex

	open    Opener
	gw      storage.Gateway
	repo    *notes.Repository
	view    *view.Synchronizer
	notify  Notifier
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

type Option func(*App)

func WithLogger(log logrus.FieldLogger) Option {
	return func(a *App) { a.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithNotifier replaces the default notifier, which queues the message on
// the view.
func WithNotifier(n Notifier) Option {
	return func(a *App) { a.notify = n }
}

// New opens the database and renders the initial list. A storage error here
// is fatal to the caller.
func New(ctx context.Context, open Opener, opts ...Option) (*App, error) {
	a := &App{
		open: open,
		view: view.NewSynchronizer(),
		log:  logrus.StandardLogger(),
	}
	a.notify = a.view
	for _, opt := range opts {
		opt(a)
	}

	gw, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open notes database: %w", err)
	}
	a.attach(gw)
	a.log.Info("notes database opened")

	if err := a.refresh(ctx); err != nil {
		a.report(ctx, "load", err)
	}
	return a, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gw.Close()
}

// Page returns what the widget currently shows.
func (a *App) Page() view.Page {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.Snapshot()
}

// Load re-renders the list from storage.
func (a *App) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.refresh(ctx); err != nil {
		return a.report(ctx, "load", err)
	}
	return nil
}

// Save creates a note from the form. On success the form is cleared.
func (a *App) Save(ctx context.Context, title, body string) (domain.Note, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.view.SetFields(title, body)
	note, err := a.repo.Create(ctx, title, body)
	if err != nil {
		if errors.Is(err, notes.ErrDuplicateTitle) {
			a.notify.Notify(ctx, duplicateTitle, duplicateText)
		}
		return domain.Note{}, a.report(ctx, "save", err)
	}
	a.logFor(ctx).WithField("id", note.ID).Info("note added")

	a.view.ClearEditBuffer()
	if err := a.refresh(ctx); err != nil {
		return note, a.report(ctx, "save", err)
	}
	return note, nil
}

// Open loads a stored note into the form.
func (a *App) Open(ctx context.Context, id int64) (domain.Note, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	note, err := a.repo.Read(ctx, id)
	if err != nil {
		return domain.Note{}, a.report(ctx, "open", err)
	}
	a.view.LoadIntoEditBuffer(note)
	a.logFor(ctx).WithField("id", id).Debug("note opened")
	return note, nil
}

// Update writes the form back to the active note.
func (a *App) Update(ctx context.Context, title, body string) (domain.Note, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.view.SetFields(title, body)
	id, ok := a.view.Buffer().ActiveID()
	if !ok {
		return domain.Note{}, a.report(ctx, "update", ErrNoActiveNote)
	}

	note, err := a.repo.Update(ctx, id, title, body)
	if err != nil {
		if errors.Is(err, notes.ErrDuplicateTitle) {
			a.notify.Notify(ctx, duplicateTitle, duplicateText)
		}
		return domain.Note{}, a.report(ctx, "update", err)
	}
	a.logFor(ctx).WithField("id", id).Info("note updated")

	a.view.ClearEditBuffer()
	if err := a.refresh(ctx); err != nil {
		return note, a.report(ctx, "update", err)
	}
	return note, nil
}

// Delete removes a note once the user confirms. The list is re-rendered
// whether or not the user confirmed; it reports whether the note was
// deleted.
func (a *App) Delete(ctx context.Context, id int64, c Confirmer) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prompt := "Are you sure you want to delete this note?"
	if row, ok := a.view.Row(id); ok {
		prompt = fmt.Sprintf("Are you sure you want to delete this note: %s?", row.Title)
	}

	deleted := false
	if c.Confirm(ctx, prompt) {
		if err := a.repo.Delete(ctx, id); err != nil {
			return false, a.report(ctx, "delete", err)
		}
		deleted = true
		a.logFor(ctx).WithField("id", id).Info("note deleted")

		if active, ok := a.view.Buffer().ActiveID(); ok && active == id {
			a.view.ClearEditBuffer()
		}
	} else {
		a.logFor(ctx).WithField("id", id).Info("note was not deleted: user cancelled")
	}

	if err := a.refresh(ctx); err != nil {
		return deleted, a.report(ctx, "delete", err)
	}
	return deleted, nil
}

// Reset drops the whole database once the user confirms, then reloads.
// It reports whether the database was dropped.
func (a *App) Reset(ctx context.Context, c Confirmer) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !c.Confirm(ctx, "Are you sure you want to delete ALL of the notes?") {
		a.logFor(ctx).Info("database not deleted: user cancelled")
		if err := a.refresh(ctx); err != nil {
			return false, a.report(ctx, "reset", err)
		}
		return false, nil
	}

	dropErr := a.gw.Drop(ctx)
	gw, err := a.open(ctx)
	if err != nil {
		return false, a.report(ctx, "reset", errors.Join(dropErr, err))
	}
	a.attach(gw)
	a.view.ClearEditBuffer()
	if dropErr != nil {
		return false, a.report(ctx, "reset", dropErr)
	}
	a.logFor(ctx).Warn("notes database deleted")

	if err := a.refresh(ctx); err != nil {
		return true, a.report(ctx, "reset", err)
	}
	return true, nil
}

// Do runs fn against the current repository, serialized with UI events,
// and re-renders the list afterwards so the widget sees the changes. An
// edit buffer whose note fn removed goes back to composing.
func (a *App) Do(ctx context.Context, fn func(repo *notes.Repository) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := fn(a.repo)
	if rerr := a.refresh(ctx); rerr != nil {
		a.report(ctx, "refresh", rerr)
		return err
	}
	if id, ok := a.view.Buffer().ActiveID(); ok {
		if _, found := a.view.Row(id); !found {
			a.view.ClearEditBuffer()
		}
	}
	return err
}

func (a *App) attach(gw storage.Gateway) {
	a.gw = gw
	a.repo = notes.NewRepository(gw)
}

func (a *App) refresh(ctx context.Context) error {
	if err := a.view.RenderList(a.repo.ListAll(ctx)); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.ListedNotes.Set(float64(a.view.RowCount()))
	}
	return nil
}

func (a *App) logFor(ctx context.Context) logrus.FieldLogger {
	return logger.FromContext(ctx, a.log)
}

// report sends a failed action to the log and the error counter and returns
// err unchanged.
func (a *App) report(ctx context.Context, action string, err error) error {
	kind := Kind(err)
	entry := a.logFor(ctx).WithFields(logrus.Fields{
		"action": action,
		"kind":   kind,
	}).WithError(err)
	switch kind {
	case "storage", "unavailable", "unknown":
		entry.Error("note action failed")
	default:
		entry.Warn("note action rejected")
	}
	if a.metrics != nil {
		a.metrics.ObserveError(action, kind)
	}
	return err
}

// Kind classifies err for logs and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, notes.ErrValidation):
		return "validation"
	case errors.Is(err, notes.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, notes.ErrDuplicateTitle), errors.Is(err, storage.ErrConstraint):
		return "duplicate_title"
	case errors.Is(err, ErrNoActiveNote):
		return "no_active_note"
	case errors.Is(err, storage.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, storage.ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}
