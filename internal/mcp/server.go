package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conorfennell/notetaker/internal/app"
	"github.com/conorfennell/notetaker/internal/domain"
	"github.com/conorfennell/notetaker/internal/notes"
)

// NewServer creates an MCP server with tools for note operations. Every
// tool runs through the App so the widget stays in step with agent edits.
func NewServer(a *app.App) *server.MCPServer {
	s := server.NewMCPServer(
		"Note Taker",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Tool: list_notes - List every stored note
	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List every note in insertion order with its id, title and body."),
		),
		handleListNotes(a),
	)

	// Tool: get_note - Get a note by ID
	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get a specific note by its numeric ID."),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("The note ID"),
			),
		),
		handleGetNote(a),
	)

	// Tool: create_note - Add a note
	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Create a note. The title must not be empty."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Note title"),
			),
			mcp.WithString("body",
				mcp.Description("Note body, markdown allowed"),
			),
		),
		handleCreateNote(a),
	)

	// Tool: update_note - Replace a note's title and body
	s.AddTool(
		mcp.NewTool("update_note",
			mcp.WithDescription("Replace the title and body of an existing note."),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("The note ID"),
			),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("New title"),
			),
			mcp.WithString("body",
				mcp.Description("New body"),
			),
		),
		handleUpdateNote(a),
	)

	// Tool: delete_note - Delete a note
	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete a note by ID. Deleting a missing note succeeds."),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("The note ID"),
			),
		),
		handleDeleteNote(a),
	)

	return s
}

func handleListNotes(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list := []domain.Note{}
		err := a.Do(ctx, func(repo *notes.Repository) error {
			for n, err := range repo.ListAll(ctx) {
				if err != nil {
					return err
				}
				list = append(list, n)
			}
			return nil
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
		}
		return jsonResult(list), nil
	}
}

func handleGetNote(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		var note domain.Note
		err = a.Do(ctx, func(repo *notes.Repository) (err error) {
			note, err = repo.Read(ctx, int64(id))
			return err
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get note: %v", err)), nil
		}
		return jsonResult(note), nil
	}
}

func handleCreateNote(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError("title is required"), nil
		}
		body := req.GetString("body", "")

		var note domain.Note
		err = a.Do(ctx, func(repo *notes.Repository) (err error) {
			note, err = repo.Create(ctx, title, body)
			return err
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create note: %v", err)), nil
		}
		return jsonResult(note), nil
	}
}

func handleUpdateNote(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError("title is required"), nil
		}
		body := req.GetString("body", "")

		var note domain.Note
		err = a.Do(ctx, func(repo *notes.Repository) (err error) {
			note, err = repo.Update(ctx, int64(id), title, body)
			return err
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to update note: %v", err)), nil
		}
		return jsonResult(note), nil
	}
}

func handleDeleteNote(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		err = a.Do(ctx, func(repo *notes.Repository) error {
			return repo.Delete(ctx, int64(id))
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete note: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("note %d deleted", id)), nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}
