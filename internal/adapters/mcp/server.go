// Package mcpadapter exposes the scheduling tools over the Model Context
// Protocol so external agent hosts can drive the same calendar operations
// the in-process experts use.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/harborworks/concierge/internal/core/usecase"
)

type Server struct {
	scheduling *usecase.SchedulingService
	mcpServer  *server.MCPServer
}

func NewServer(scheduling *usecase.SchedulingService, version string) *Server {
	s := &Server{
		scheduling: scheduling,
		mcpServer: server.NewMCPServer(
			"concierge-calendar",
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_directory_entries",
			mcp.WithDescription("List every person in the business directory with their contact address."),
		),
		s.handleListDirectory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("check_availability",
			mcp.WithDescription("Check a person's free slots during business hours on a given day."),
			mcp.WithString("person",
				mcp.Required(),
				mcp.Description("Display name or address of the person to check."),
			),
			mcp.WithString("date_phrase",
				mcp.Required(),
				mcp.Description("Natural-language day, e.g. 'tomorrow' or 'next friday'."),
			),
		),
		s.handleCheckAvailability,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("book_meeting",
			mcp.WithDescription("Create a calendar event with conferencing enabled."),
			mcp.WithString("organizer_address",
				mcp.Required(),
				mcp.Description("Address of the meeting organizer."),
			),
			mcp.WithString("attendee",
				mcp.Required(),
				mcp.Description("Display name or address of the attendee."),
			),
			mcp.WithString("subject",
				mcp.Required(),
				mcp.Description("Meeting subject line."),
			),
			mcp.WithString("start_time",
				mcp.Required(),
				mcp.Description("Start time, RFC3339 or local '2006-01-02 15:04'."),
			),
			mcp.WithString("end_time",
				mcp.Required(),
				mcp.Description("End time, RFC3339 or local '2006-01-02 15:04'."),
			),
		),
		s.handleBookMeeting,
	)
}

func (s *Server) handleListDirectory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.scheduling.ListDirectory(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(entries)
}

func (s *Server) handleCheckAvailability(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	person, err := req.RequireString("person")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	datePhrase, err := req.RequireString("date_phrase")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	availability, err := s.scheduling.Availability(ctx, person, datePhrase)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(availability)
}

func (s *Server) handleBookMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := usecase.BookingParams{
		OrganizerAddress: req.GetString("organizer_address", ""),
		Person:           req.GetString("attendee", ""),
		Subject:          req.GetString("subject", ""),
		Start:            req.GetString("start_time", ""),
		End:              req.GetString("end_time", ""),
	}

	booking, err := s.scheduling.Book(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(booking)
}

func textResult(payload any) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

// StartSSE serves the MCP surface over HTTP server-sent events until the
// listener fails or the server is shut down.
func (s *Server) StartSSE(addr string) error {
	sse := server.NewSSEServer(s.mcpServer)
	return sse.Start(addr)
}

// ServeStdio runs the MCP surface on stdin/stdout for process-spawning
// hosts.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
