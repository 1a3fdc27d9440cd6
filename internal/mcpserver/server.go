// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Vaultfold folder tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultfold/internal/folders"
)

const (
	toolManageFolder = "manage_folder"
	toolContract     = "get_folder_contract"
	contractURI      = "vaultfold://folder-operations"
)

// Executor runs folder operations.
type Executor interface {
	Execute(ctx context.Context, req folders.Request) (*folders.Result, error)
}

// Server wraps the MCP server with Vaultfold tools.
type Server struct {
	mcp     *server.MCPServer
	exec    Executor
	timeout time.Duration
}

// New creates a new MCP server with all Vaultfold tools registered. timeout
// bounds each tool call; zero disables the bound.
func New(exec Executor, timeout time.Duration) *Server {
	s := &Server{exec: exec, timeout: timeout}

	s.mcp = server.NewMCPServer(
		"Vaultfold",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool(toolManageFolder,
		mcp.WithDescription("Create, rename, move, delete or list folders inside the vault. "+
			"Rename and move rewrite [[wikilinks]] that point into the folder. "+
			"Delete requires confirm_path equal to path. Use dry_run to preview any change. "+
			"Read the contract first via the get_folder_contract tool or the "+contractURI+" resource."),
		mcp.WithString("operation", mcp.Required(),
			mcp.Enum("create", "rename", "move", "delete", "list"),
			mcp.Description("Operation to run")),
		mcp.WithString("path", mcp.Description("Folder path relative to the vault root (e.g. projects/alpha). Empty lists the root")),
		mcp.WithString("new_name", mcp.Description("rename: new last segment of the folder path")),
		mcp.WithString("destination", mcp.Description("move: parent folder to move into; empty string is the vault root")),
		mcp.WithBoolean("create_parents", mcp.Description("create: create missing parent folders (default true)")),
		mcp.WithBoolean("force", mcp.Description("delete: remove a folder that is not empty")),
		mcp.WithString("confirm_path", mcp.Description("delete: must repeat path exactly")),
		mcp.WithBoolean("check_references", mcp.Description("delete: report notes that link into the folder (default true)")),
		mcp.WithBoolean("update_references", mcp.Description("rename/move: rewrite wikilinks to the new location (default true)")),
		mcp.WithBoolean("recursive", mcp.Description("list: include nested folders")),
		mcp.WithNumber("max_depth", mcp.Description("list: levels to descend when recursive (capped at 10)")),
		mcp.WithBoolean("include_stats", mcp.Description("list: include note counts and sizes (default true)")),
		mcp.WithNumber("offset", mcp.Description("list: index of the first entry to return")),
		mcp.WithNumber("page_size", mcp.Description("list: entries per page (default 50, max 200)")),
		mcp.WithBoolean("dry_run", mcp.Description("Validate and report what would change without touching the vault")),
	), s.manageFolder)

	s.mcp.AddTool(mcp.NewTool(toolContract,
		mcp.WithDescription("Returns the Vaultfold folder operation contract. "+
			"Call this before changing folders to learn the rules and defaults."),
	), s.getFolderContract)

	// Resource: folder operation contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Folder Operations Contract",
			mcp.WithResourceDescription("Rules, defaults and error kinds of the manage_folder tool."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) manageFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := decodeParams(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	opReq, err := params.Request()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.exec.Execute(ctx, opReq)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// decodeParams round-trips the loosely typed tool arguments through JSON so
// the transports share one parameter schema.
func decodeParams(args map[string]any) (folders.Params, error) {
	var p folders.Params
	raw, err := json.Marshal(args)
	if err != nil {
		return p, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	err = dec.Decode(&p)
	return p, err
}

func (s *Server) getFolderContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FolderOperationsContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     FolderOperationsContract,
		},
	}, nil
}
