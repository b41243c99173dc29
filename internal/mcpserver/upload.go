package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notedrop/internal/service"
)

// maxUploadSize caps decoded tool uploads.
const maxUploadSize = 10 << 20

func (s *Server) uploadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireInt("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	encoded, err := req.RequireString("content_base64")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > maxUploadSize {
		return mcp.NewToolResultError(fmt.Sprintf("file exceeds %d MB limit", maxUploadSize>>20)), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return mcp.NewToolResultError("content_base64 is not valid base64"), nil
	}

	result, err := s.svc.UploadFiles(ctx, s.actor, int64(folderID), []service.Upload{{
		Filename: filename,
		Body:     bytes.NewReader(data),
	}})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(result.Files[0]), nil
}
