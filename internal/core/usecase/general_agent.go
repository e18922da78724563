package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/nldate"
	"github.com/harborworks/concierge/internal/core/ports"
)

// The general expert is the catch-all: it answers greetings and capability
// questions and carries the superset of read-only tools so it can still be
// useful when classification lands here with low confidence. Side-effect
// tools (booking, logging time) stay with the specialized experts.
func generalToolDefinitions() []domain.ToolDefinition {
	defs := make([]domain.ToolDefinition, 0, 4)
	for _, def := range calendarToolDefinitions() {
		if def.Name == toolBookMeeting {
			continue
		}
		defs = append(defs, def)
	}
	for _, def := range billingToolDefinitions() {
		if def.Name == toolLogTimeEntry || def.Name == toolExportTimesheet {
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

func generalSystemPrompt(now time.Time) string {
	local := now.In(nldate.Location())
	return fmt.Sprintf(`You are a front-desk assistant for a small business.
Today is %s, %s (%s).

You can check calendars, look people up in the directory, and review
logged time. To actually book a meeting or log billable hours, tell the
user to phrase that request directly so the right specialist handles it.
Answer capability questions by listing what you can do.`,
		local.Weekday(), local.Format(nldate.DateLayout), nldate.BusinessTimezone)
}

type generalToolExecutor struct {
	calendar *calendarToolExecutor
	billing  *billingToolExecutor
}

func (e *generalToolExecutor) Execute(ctx context.Context, inv ToolInvocation) (ToolResult, error) {
	switch inv.Name {
	case toolListDirectoryEntries, toolCheckAvailability:
		return e.calendar.Execute(ctx, inv)
	case toolListStaff, toolListTimeEntries:
		return e.billing.Execute(ctx, inv)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "general tools", fmt.Errorf("unsupported tool: %s", inv.Name))
	}
}

func NewGeneralExpert(model ports.ChatModel, sessions ports.SessionStore, scheduling *SchedulingService, billing *BillingService, historyLimit int, now func() time.Time) *Expert {
	return NewExpert(ExpertConfig{
		Name:     ExpertGeneral,
		Model:    model,
		Sessions: sessions,
		Executor: &generalToolExecutor{
			calendar: &calendarToolExecutor{scheduling: scheduling},
			billing:  &billingToolExecutor{billing: billing},
		},
		Tools:        generalToolDefinitions(),
		SystemPrompt: generalSystemPrompt,
		HistoryLimit: historyLimit,
		Now:          now,
	})
}
