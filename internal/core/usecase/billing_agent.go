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
	toolListStaff       = "list_staff"
	toolLogTimeEntry    = "log_time_entry"
	toolListTimeEntries = "list_time_entries"
	toolExportTimesheet = "export_timesheet"
)

func billingToolDefinitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        toolListStaff,
			Description: "List every staff member known to the accounting system with their display name and staff id.",
			Parameters:  map[string]domain.ToolParameter{},
		},
		{
			Name:        toolLogTimeEntry,
			Description: "Log billable hours for a staff member on a given date.",
			Parameters: map[string]domain.ToolParameter{
				"person":  {Type: "string", Description: "Staff display name", Required: true},
				"hours":   {Type: "number", Description: "Billable hours, greater than 0 and at most 24", Required: true},
				"date":    {Type: "string", Description: "Natural-language date; defaults to today", Required: false},
				"project": {Type: "string", Description: "Project or client the time belongs to", Required: false},
				"notes":   {Type: "string", Description: "Free-text notes for the entry", Required: false},
			},
		},
		{
			Name:        toolListTimeEntries,
			Description: "List a staff member's logged time entries over a date range (default: trailing seven days).",
			Parameters: map[string]domain.ToolParameter{
				"person": {Type: "string", Description: "Staff display name", Required: true},
				"from":   {Type: "string", Description: "Range start date phrase", Required: false},
				"to":     {Type: "string", Description: "Range end date phrase; defaults to today", Required: false},
			},
		},
		{
			Name:        toolExportTimesheet,
			Description: "Export a staff member's time entries over a date range as a spreadsheet and return the file path.",
			Parameters: map[string]domain.ToolParameter{
				"person": {Type: "string", Description: "Staff display name", Required: true},
				"from":   {Type: "string", Description: "Range start date phrase", Required: false},
				"to":     {Type: "string", Description: "Range end date phrase; defaults to today", Required: false},
			},
		},
	}
}

func billingSystemPrompt(now time.Time) string {
	local := now.In(nldate.Location())
	return fmt.Sprintf(`You are a time-tracking assistant for a small business.
Today is %s, %s (%s).

Rules:
- Resolve staff names through %s before logging time; never guess a staff id.
- Dates the user mentions are in the business timezone.
- Time entries are submitted once; if a submission fails, report the error instead of retrying.
- Confirm logged entries by repeating the date, hours and project.`,
		local.Weekday(), local.Format(nldate.DateLayout), nldate.BusinessTimezone, toolListStaff)
}

type billingToolExecutor struct {
	billing *BillingService
}

func (e *billingToolExecutor) Execute(ctx context.Context, inv ToolInvocation) (ToolResult, error) {
	switch inv.Name {
	case toolListStaff:
		return e.billing.ListStaff(ctx)
	case toolLogTimeEntry:
		person := stringArg(inv.Args, "person")
		if person == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, toolLogTimeEntry, fmt.Errorf("person is required"))
		}
		hours, ok := floatArg(inv.Args, "hours")
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, toolLogTimeEntry, fmt.Errorf("hours is required and must be numeric"))
		}
		return e.billing.LogTime(ctx, person, stringArg(inv.Args, "date"), hours,
			stringArg(inv.Args, "project"), stringArg(inv.Args, "notes"))
	case toolListTimeEntries:
		person := stringArg(inv.Args, "person")
		if person == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, toolListTimeEntries, fmt.Errorf("person is required"))
		}
		return e.billing.ListEntries(ctx, person, stringArg(inv.Args, "from"), stringArg(inv.Args, "to"))
	case toolExportTimesheet:
		person := stringArg(inv.Args, "person")
		if person == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, toolExportTimesheet, fmt.Errorf("person is required"))
		}
		return e.billing.ExportTimesheet(ctx, person, stringArg(inv.Args, "from"), stringArg(inv.Args, "to"))
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "billing tools", fmt.Errorf("unsupported tool: %s", inv.Name))
	}
}

func NewBillingExpert(model ports.ChatModel, sessions ports.SessionStore, billing *BillingService, historyLimit int, now func() time.Time) *Expert {
	return NewExpert(ExpertConfig{
		Name:         ExpertBilling,
		Model:        model,
		Sessions:     sessions,
		Executor:     &billingToolExecutor{billing: billing},
		Tools:        billingToolDefinitions(),
		SystemPrompt: billingSystemPrompt,
		HistoryLimit: historyLimit,
		Now:          now,
	})
}
