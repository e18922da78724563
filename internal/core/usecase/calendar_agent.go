package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/nldate"
	"github.com/harborworks/concierge/internal/core/ports"
)

const (
	ExpertCalendar = "calendar"
	ExpertBilling  = "billing"
	ExpertGeneral  = "general"
)

const (
	toolListDirectoryEntries = "list_directory_entries"
	toolCheckAvailability    = "check_availability"
	toolBookMeeting          = "book_meeting"
)

func calendarToolDefinitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        toolListDirectoryEntries,
			Description: "List every known person with their display name and contact address. Use this to resolve a name to an address before booking.",
			Parameters:  map[string]domain.ToolParameter{},
		},
		{
			Name:        toolCheckAvailability,
			Description: "Check a person's calendar for a given day and return busy intervals and free slots within business hours (9:00-17:00 " + nldate.BusinessTimezone + ").",
			Parameters: map[string]domain.ToolParameter{
				"person": {Type: "string", Description: "Display name or exact contact address", Required: true},
				"date":   {Type: "string", Description: "Natural-language date such as 'tomorrow' or 'next friday'; defaults to today", Required: false},
			},
		},
		{
			Name:        toolBookMeeting,
			Description: "Create a calendar meeting with conferencing enabled. organizerAddress must come from " + toolListDirectoryEntries + ", never guessed.",
			Parameters: map[string]domain.ToolParameter{
				"person":           {Type: "string", Description: "Display name or address of the main attendee", Required: true},
				"subject":          {Type: "string", Description: "Meeting subject line", Required: true},
				"start":            {Type: "string", Description: "Start date-time, e.g. 2026-08-24T14:00", Required: true},
				"end":              {Type: "string", Description: "End date-time, must be after start", Required: true},
				"organizerName":    {Type: "string", Description: "Organizer display name", Required: true},
				"organizerAddress": {Type: "string", Description: "Organizer contact address from the directory", Required: true},
				"attendees":        {Type: "array", Description: "Additional attendee addresses", Required: false},
				"body":             {Type: "string", Description: "Invitation body text", Required: false},
			},
		},
	}
}

func calendarSystemPrompt(now time.Time) string {
	local := now.In(nldate.Location())
	return fmt.Sprintf(`You are a scheduling assistant for a small business.
Today is %s, %s (%s).

Rules:
- Resolve people through the directory before booking; never invent an address.
- All times the user mentions are in the business timezone.
- When a tool returns an error, read its hint and either correct your call or explain the problem to the user.
- Confirm bookings by repeating the weekday, date, time and duration.`,
		local.Weekday(), local.Format(nldate.DateLayout), nldate.BusinessTimezone)
}

type calendarToolExecutor struct {
	scheduling *SchedulingService
}

func (e *calendarToolExecutor) Execute(ctx context.Context, inv ToolInvocation) (ToolResult, error) {
	switch inv.Name {
	case toolListDirectoryEntries:
		return e.scheduling.ListDirectory(ctx)
	case toolCheckAvailability:
		person := stringArg(inv.Args, "person")
		if person == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, toolCheckAvailability, fmt.Errorf("person is required"))
		}
		return e.scheduling.Availability(ctx, person, stringArg(inv.Args, "date"))
	case toolBookMeeting:
		return e.scheduling.Book(ctx, BookingParams{
			Person:           stringArg(inv.Args, "person"),
			Subject:          stringArg(inv.Args, "subject"),
			Start:            stringArg(inv.Args, "start"),
			End:              stringArg(inv.Args, "end"),
			OrganizerName:    stringArg(inv.Args, "organizerName"),
			OrganizerAddress: stringArg(inv.Args, "organizerAddress"),
			Attendees:        stringSliceArg(inv.Args, "attendees"),
			Body:             stringArg(inv.Args, "body"),
		})
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "calendar tools", fmt.Errorf("unsupported tool: %s", inv.Name))
	}
}

// NewCalendarExpert builds the calendar agent: the canonical expert owning
// the directory/calendar toolset.
func NewCalendarExpert(model ports.ChatModel, sessions ports.SessionStore, scheduling *SchedulingService, historyLimit int, now func() time.Time) *Expert {
	return NewExpert(ExpertConfig{
		Name:         ExpertCalendar,
		Model:        model,
		Sessions:     sessions,
		Executor:     &calendarToolExecutor{scheduling: scheduling},
		Tools:        calendarToolDefinitions(),
		SystemPrompt: calendarSystemPrompt,
		HistoryLimit: historyLimit,
		Now:          now,
	})
}
