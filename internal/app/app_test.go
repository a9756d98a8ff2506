package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/notetaker/internal/metrics"
	"github.com/conorfennell/notetaker/internal/notes"
	"github.com/conorfennell/notetaker/internal/storage"
	"github.com/conorfennell/notetaker/internal/view"
)

type fixture struct {
	app     *App
	hook    *test.Hook
	metrics *metrics.Metrics
	dir     string
}

func newFixture(t *testing.T, uniqueTitles bool) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	m := metrics.New()
	dir := t.TempDir()

	opener := func(ctx context.Context) (storage.Gateway, error) {
		return storage.Open(ctx, storage.Options{Dir: dir, UniqueTitles: uniqueTitles})
	}
	a, err := New(context.Background(), opener, WithLogger(log), WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &fixture{app: a, hook: hook, metrics: m, dir: dir}
}

func titles(p view.Page) []string {
	out := []string{}
	for _, r := range p.Rows {
		out = append(out, r.Title)
	}
	return out
}

func TestNew_Unavailable(t *testing.T) {
	opener := func(context.Context) (storage.Gateway, error) {
		return nil, storage.ErrUnavailable
	}
	_, err := New(context.Background(), opener)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	note, err := f.app.Save(ctx, "Groceries", "Milk, eggs")
	require.NoError(t, err)
	assert.Positive(t, note.ID)

	page := f.app.Page()
	assert.Equal(t, []string{"Groceries"}, titles(page))
	assert.Equal(t, view.Composing, page.Buffer.State())
	assert.Empty(t, page.Buffer.Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ListedNotes))
}

func TestSave_EmptyTitleKeepsForm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.app.Save(ctx, "", "typed body")
	assert.ErrorIs(t, err, notes.ErrValidation)

	page := f.app.Page()
	assert.Empty(t, page.Rows)
	assert.Equal(t, "typed body", page.Buffer.Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionErrors.WithLabelValues("save", "validation")))
	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
}

func TestSave_ResetsToComposingFromEditing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	first, err := f.app.Save(ctx, "first", "")
	require.NoError(t, err)
	_, err = f.app.Open(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, view.Editing, f.app.Page().Buffer.State())

	_, err = f.app.Save(ctx, "second", "")
	require.NoError(t, err)
	page := f.app.Page()
	assert.Equal(t, view.Composing, page.Buffer.State())
	assert.Equal(t, []string{"first", "second"}, titles(page))
}

func TestSave_DuplicateTitleNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	_, err := f.app.Save(ctx, "Groceries", "Milk, eggs")
	require.NoError(t, err)
	_, err = f.app.Save(ctx, "Groceries", "Bread")
	assert.ErrorIs(t, err, notes.ErrDuplicateTitle)

	page := f.app.Page()
	require.NotNil(t, page.Notice)
	assert.Equal(t, duplicateTitle, page.Notice.Title)
	assert.Equal(t, "Bread", page.Buffer.Body)
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionErrors.WithLabelValues("save", "duplicate_title")))
}

func TestSave_CustomNotifier(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	var got []string
	notifier := notifierFunc(func(_ context.Context, title, text string) { got = append(got, title) })

	dir := t.TempDir()
	opener := func(ctx context.Context) (storage.Gateway, error) {
		return storage.Open(ctx, storage.Options{Dir: dir, UniqueTitles: true})
	}
	a, err := New(ctx, opener, WithLogger(log), WithNotifier(notifier))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Save(ctx, "x", "")
	require.NoError(t, err)
	_, err = a.Save(ctx, "x", "")
	require.Error(t, err)
	assert.Equal(t, []string{duplicateTitle}, got)
	assert.Nil(t, a.Page().Notice)
}

type notifierFunc func(ctx context.Context, title, text string)

func (f notifierFunc) Notify(ctx context.Context, title, text string) { f(ctx, title, text) }

func TestOpenAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	note, err := f.app.Save(ctx, "draft", "body")
	require.NoError(t, err)

	_, err = f.app.Open(ctx, note.ID)
	require.NoError(t, err)
	page := f.app.Page()
	assert.Equal(t, view.Editing, page.Buffer.State())
	assert.Equal(t, "draft", page.Buffer.Title)
	assert.Equal(t, note.ID, page.Buffer.NoteID())

	updated, err := f.app.Update(ctx, "final", "new body")
	require.NoError(t, err)
	assert.Equal(t, note.ID, updated.ID)

	page = f.app.Page()
	assert.Equal(t, view.Composing, page.Buffer.State())
	assert.Equal(t, []string{"final"}, titles(page))
}

func TestOpen_NotFoundLeavesBuffer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.app.Open(ctx, 404)
	assert.ErrorIs(t, err, notes.ErrNotFound)
	assert.Equal(t, view.Composing, f.app.Page().Buffer.State())
}

func TestUpdate_WithoutActiveNote(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.app.Update(context.Background(), "t", "b")
	assert.ErrorIs(t, err, ErrNoActiveNote)
}

func TestUpdate_DeletedMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	note, err := f.app.Save(ctx, "gone soon", "")
	require.NoError(t, err)
	_, err = f.app.Open(ctx, note.ID)
	require.NoError(t, err)

	require.NoError(t, f.app.Do(ctx, func(repo *notes.Repository) error {
		return repo.Delete(ctx, note.ID)
	}))

	assert.Equal(t, view.Composing, f.app.Page().Buffer.State())

	_, err = f.app.Update(ctx, "gone soon", "edited")
	assert.ErrorIs(t, err, ErrNoActiveNote)
	assert.Empty(t, f.app.Page().Rows)
}

func TestDo_KeepsBufferWhenNoteSurvives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	keep, err := f.app.Save(ctx, "keep", "")
	require.NoError(t, err)
	drop, err := f.app.Save(ctx, "drop", "")
	require.NoError(t, err)
	_, err = f.app.Open(ctx, keep.ID)
	require.NoError(t, err)

	require.NoError(t, f.app.Do(ctx, func(repo *notes.Repository) error {
		return repo.Delete(ctx, drop.ID)
	}))

	buf := f.app.Page().Buffer
	assert.Equal(t, view.Editing, buf.State())
	id, ok := buf.ActiveID()
	require.True(t, ok)
	assert.Equal(t, keep.ID, id)
}

func TestDelete_ActiveNoteClearsBuffer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	note, err := f.app.Save(ctx, "X", "")
	require.NoError(t, err)
	_, err = f.app.Open(ctx, note.ID)
	require.NoError(t, err)

	var prompt string
	confirm := ConfirmFunc(func(_ context.Context, p string) bool {
		prompt = p
		return true
	})
	deleted, err := f.app.Delete(ctx, note.ID, confirm)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, "Are you sure you want to delete this note: X?", prompt)

	page := f.app.Page()
	assert.Equal(t, view.Composing, page.Buffer.State())
	assert.Empty(t, page.Rows)
}

func TestDelete_OtherNoteKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	keep, err := f.app.Save(ctx, "keep", "")
	require.NoError(t, err)
	drop, err := f.app.Save(ctx, "drop", "")
	require.NoError(t, err)
	_, err = f.app.Open(ctx, keep.ID)
	require.NoError(t, err)

	_, err = f.app.Delete(ctx, drop.ID, Confirmed)
	require.NoError(t, err)

	page := f.app.Page()
	assert.Equal(t, keep.ID, page.Buffer.NoteID())
	assert.Equal(t, []string{"keep"}, titles(page))
}

func TestDelete_Cancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	note, err := f.app.Save(ctx, "stay", "")
	require.NoError(t, err)

	deleted, err := f.app.Delete(ctx, note.ID, Declined)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []string{"stay"}, titles(f.app.Page()))
}

func TestDelete_MissingIsSuccess(t *testing.T) {
	f := newFixture(t, false)
	deleted, err := f.app.Delete(context.Background(), 77, Confirmed)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	note, err := f.app.Save(ctx, "a", "")
	require.NoError(t, err)
	_, err = f.app.Save(ctx, "b", "")
	require.NoError(t, err)
	_, err = f.app.Open(ctx, note.ID)
	require.NoError(t, err)

	dropped, err := f.app.Reset(ctx, Declined)
	require.NoError(t, err)
	assert.False(t, dropped)
	assert.Len(t, f.app.Page().Rows, 2)

	dropped, err = f.app.Reset(ctx, Confirmed)
	require.NoError(t, err)
	assert.True(t, dropped)

	page := f.app.Page()
	assert.Empty(t, page.Rows)
	assert.Equal(t, view.Composing, page.Buffer.State())

	// The reopened database is usable.
	_, err = f.app.Save(ctx, "fresh", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, titles(f.app.Page()))
}

func TestReset_ReopenFails(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	calls := 0
	opener := func(ctx context.Context) (storage.Gateway, error) {
		calls++
		if calls > 1 {
			return nil, storage.ErrUnavailable
		}
		return storage.Open(ctx, storage.Options{Dir: dir})
	}
	a, err := New(ctx, opener, WithLogger(log))
	require.NoError(t, err)

	_, err = a.Reset(ctx, Confirmed)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestDo_RefreshesList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	err := f.app.Do(ctx, func(repo *notes.Repository) error {
		_, err := repo.Create(ctx, "from tool", "")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"from tool"}, titles(f.app.Page()))

	boom := errors.New("boom")
	assert.ErrorIs(t, f.app.Do(ctx, func(*notes.Repository) error { return boom }), boom)
}

func TestLoad_ReadsExistingNotes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gw, err := storage.Open(ctx, storage.Options{Dir: dir})
	require.NoError(t, err)
	_, err = notes.NewRepository(gw).Create(ctx, "before start", "")
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	log, _ := test.NewNullLogger()
	a, err := New(ctx, func(ctx context.Context) (storage.Gateway, error) {
		return storage.Open(ctx, storage.Options{Dir: dir})
	}, WithLogger(log))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"before start"}, titles(a.Page()))
	require.NoError(t, a.Load(ctx))
}

func TestKind(t *testing.T) {
	testCases := []struct {
		err      error
		expected string
	}{
		{err: notes.ErrValidation, expected: "validation"},
		{err: notes.ErrNotFound, expected: "not_found"},
		{err: storage.ErrNotFound, expected: "not_found"},
		{err: notes.ErrDuplicateTitle, expected: "duplicate_title"},
		{err: ErrNoActiveNote, expected: "no_active_note"},
		{err: storage.ErrUnavailable, expected: "unavailable"},
		{err: storage.ErrStorage, expected: "storage"},
		{err: errors.New("other"), expected: "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, Kind(tc.err))
		})
	}
}
