package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/notetaker/internal/app"
	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/storage"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	opener := func(ctx context.Context) (storage.Gateway, error) {
		return storage.Open(ctx, storage.Options{Dir: dir})
	}
	a, err := app.New(context.Background(), opener, app.WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(newTestApp(t)))
}

func TestTools(t *testing.T) {
	a := newTestApp(t)

	res := call(t, handleCreateNote(a), map[string]any{"title": "Groceries", "body": "Milk"})
	require.False(t, res.IsError, text(t, res))
	var created domain.Note
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &created))
	assert.Positive(t, created.ID)

	// The widget sees the new note.
	require.Len(t, a.Page().Rows, 1)

	res = call(t, handleUpdateNote(a), map[string]any{"id": float64(created.ID), "title": "Shopping", "body": "Bread"})
	require.False(t, res.IsError, text(t, res))

	res = call(t, handleGetNote(a), map[string]any{"id": float64(created.ID)})
	require.False(t, res.IsError)
	var got domain.Note
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, domain.Note{ID: created.ID, Title: "Shopping", Body: "Bread"}, got)

	res = call(t, handleListNotes(a), nil)
	require.False(t, res.IsError)
	var list []domain.Note
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &list))
	assert.Len(t, list, 1)

	res = call(t, handleDeleteNote(a), map[string]any{"id": float64(created.ID)})
	require.False(t, res.IsError)
	assert.Empty(t, a.Page().Rows)
}

func TestToolErrors(t *testing.T) {
	a := newTestApp(t)

	res := call(t, handleCreateNote(a), map[string]any{"body": "no title"})
	assert.True(t, res.IsError)

	res = call(t, handleCreateNote(a), map[string]any{"title": ""})
	assert.True(t, res.IsError)

	res = call(t, handleGetNote(a), map[string]any{"id": float64(99)})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not found")

	res = call(t, handleUpdateNote(a), map[string]any{"title": "x"})
	assert.True(t, res.IsError)
}

func TestJSONResultEncodeFailure(t *testing.T) {
	res := jsonResult(map[string]any{"ch": make(chan int)})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "failed to encode result")

	res = jsonResult(domain.Note{ID: 1, Title: "T"})
	assert.False(t, res.IsError)
}
