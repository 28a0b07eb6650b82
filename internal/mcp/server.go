// Package mcp exposes a mailbox host client as Model Context Protocol
// tools, so agent frontends can issue guest commands without shelling out
// to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aki/mbx/internal/core/client"
	"github.com/aki/mbx/internal/core/config"
	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
)

// Server implements the MCP server over one mailbox using mcp-go.
type Server struct {
	mcpServer *server.MCPServer
	paths     mailbox.Paths
	cfg       *config.Config
	store     mailbox.Store
	log       logger.Logger
}

// NewServer creates an MCP server for the mailbox at dir.
func NewServer(dir string, log logger.Logger) (*Server, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("shared directory does not exist: %s", dir)
	}

	paths := mailbox.NewPaths(dir)
	cfg, err := config.Load(context.Background(), paths)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		"mbx",
		"1.0.0",
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		paths:     paths,
		cfg:       cfg,
		store:     mailbox.NewDirStore(),
		log:       log,
	}

	s.registerTools()
	return s, nil
}

// registerTools registers the mailbox tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("mailbox_send",
		mcp.WithDescription("Send a shell command to the guest and wait for output and return code"),
		mcp.WithString("command",
			mcp.Description("Command text; the first non-empty line is the directive"),
			mcp.Required(),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Wait budget in milliseconds (optional)"),
		),
	), s.handleSend)

	s.mcpServer.AddTool(mcp.NewTool("mailbox_status",
		mcp.WithDescription("Report the guest's advisory status token and which protocol files exist"),
	), s.handleStatus)

	s.mcpServer.AddTool(mcp.NewTool("mailbox_stop",
		mcp.WithDescription("Send the stop directive and wait for the guest's farewell"),
	), s.handleStop)
}

func (s *Server) newClient(timeoutMs float64) *client.Client {
	cfg := *s.cfg
	if timeoutMs > 0 {
		cfg.SendTimeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return client.New(s.store, s.paths, &cfg, mailbox.SystemClock(), s.log)
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	command, ok := args["command"].(string)
	if !ok || strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("invalid or missing command argument")
	}
	timeoutMs, _ := args["timeout_ms"].(float64)

	reply, err := s.newClient(timeoutMs).Send(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}

	return textResult(replyJSON(reply)), nil
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := "unknown"
	if data, err := s.store.Read(s.paths.Sta); err == nil {
		status = strings.TrimSpace(string(data))
	}

	result, _ := json.MarshalIndent(map[string]any{
		"directory":      s.paths.Dir,
		"status":         status,
		"pendingCommand": s.store.Exists(s.paths.CmdPending),
		"claimedCommand": s.store.Exists(s.paths.CmdClaimed),
		"output":         s.store.Exists(s.paths.Out),
		"returnCode":     s.store.Exists(s.paths.Rc),
	}, "", "  ")
	return textResult(string(result)), nil
}

func (s *Server) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reply, err := s.newClient(0).Stop(ctx)
	if err != nil {
		return nil, fmt.Errorf("stop failed: %w", err)
	}
	return textResult(replyJSON(reply)), nil
}

// Start starts the MCP server over stdio.
func (s *Server) Start(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer)
}

func replyJSON(reply mailbox.Reply) string {
	payload := map[string]any{"output": reply.Output}
	if reply.Code != nil {
		payload["returnCode"] = *reply.Code
	}
	result, _ := json.MarshalIndent(payload, "", "  ")
	return string(result)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
