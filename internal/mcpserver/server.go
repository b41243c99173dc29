// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notedrop tools for LLM integration via stdio transport.
// Every tool acts as one fixed identity and goes through the same access
// decisions as the HTTP interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/models"
	"github.com/starford/notedrop/internal/service"
)

// Server wraps the MCP server with notedrop tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *service.Service
	actor access.Actor
}

// New creates a new MCP server with all notedrop tools registered. Tools run
// as actor; pass access.Anonymous() for a public-only view.
func New(svc *service.Service, actor access.Actor) *Server {
	s := &Server{svc: svc, actor: actor}

	s.mcp = server.NewMCPServer(
		"notedrop",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes visible to the configured user: own notes and notes shared with them. "+
			"Without a user, lists the newest public notes."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note owned by the configured user. Notes are private unless is_public is set."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, at most 200 characters")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
		mcp.WithBoolean("is_public", mcp.Description("Make the note readable by everyone")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List folders visible to the configured user: own folders and folders shared with them. "+
			"Without a user, lists the newest public folders."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the files of a folder, newest first."),
		mcp.WithNumber("folder_id", mcp.Required(), mcp.Description("Folder id")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("upload_file",
		mcp.WithDescription("Upload a file into a folder. The folder must be owned by or shared with the "+
			"configured user, or be a public drop folder."),
		mcp.WithNumber("folder_id", mcp.Required(), mcp.Description("Folder id")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Original file name including extension")),
		mcp.WithString("content_base64", mcp.Required(), mcp.Description("File content, standard base64")),
	), s.uploadFile)

	s.mcp.AddResource(
		mcp.NewResource(accessModelURI, "Access Model",
			mcp.WithResourceDescription("Who may read, change, share and upload to notes and folders."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAccessModelResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool result. Denials read the same
// as over HTTP and never say which rule refused.
func toolError(err error) *mcp.CallToolResult {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return mcp.NewToolResultError(verr.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrForbidden):
		return mcp.NewToolResultError("forbidden")
	case errors.Is(err, apperr.ErrUnauthorized):
		return mcp.NewToolResultError("a user must be configured for this tool")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.actor.IsAnonymous() {
		home, err := s.svc.Home(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string][]models.Note{"public_notes": home.Notes}), nil
	}
	d, err := s.svc.Dashboard(ctx, s.actor)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string][]models.Note{"notes": d.Notes, "shared_notes": d.SharedNotes}), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.ViewNote(ctx, s.actor, int64(id))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s", view.Note.Title, view.Note.Content)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateNote(ctx, s.actor, service.NoteInput{
		Title:    title,
		Content:  content,
		IsPublic: req.GetBool("is_public", false),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created note %d", note.ID)), nil
}

func (s *Server) listFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.actor.IsAnonymous() {
		home, err := s.svc.Home(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string][]models.Folder{"public_folders": home.Folders}), nil
	}
	d, err := s.svc.Dashboard(ctx, s.actor)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string][]models.Folder{"folders": d.Folders, "shared_folders": d.SharedFolders}), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.ViewFolder(ctx, s.actor, int64(id))
	if err != nil {
		return toolError(err), nil
	}
	if len(view.Files) == 0 {
		return mcp.NewToolResultText("no files found"), nil
	}
	return jsonResult(view.Files), nil
}

func (s *Server) readAccessModelResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      accessModelURI,
			MIMEType: "text/markdown",
			Text:     AccessModel,
		},
	}, nil
}
