package ports

import (
	"context"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
)

// ChatModel is the LLM provider chat call. A nil or empty tool list means
// tool use is disabled for that call; providers are stateless, so the full
// message history and tool definitions travel on every call.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.ConversationMessage, tools []domain.ToolDefinition) (*domain.ChatTurn, error)
}

// Directory is the external directory/calendar service boundary.
type Directory interface {
	ListUsers(ctx context.Context) ([]domain.DirectoryEntry, error)
	CalendarView(ctx context.Context, address string, start, end time.Time) ([]domain.CalendarEvent, error)
	CreateEvent(ctx context.Context, address string, req domain.MeetingRequest) (*domain.CalendarEvent, error)
}

// TimeLedger is the external accounting/time-entry service boundary.
type TimeLedger interface {
	ListStaff(ctx context.Context) ([]domain.StaffEntry, error)
	SubmitTimeEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error)
	ListTimeEntries(ctx context.Context, filter domain.TimeEntryFilter) ([]domain.TimeEntry, error)
}

// SessionStore persists per-session conversation history. Entries expire
// after an inactivity TTL; the store is the durable source of truth across
// process restarts.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) ([]domain.ConversationMessage, error)
	Put(ctx context.Context, sessionID string, messages []domain.ConversationMessage) error
	Delete(ctx context.Context, sessionID string) error
}

// EventPublisher emits turn-completed audit events. Publishing is
// best-effort; failures must never fail the user's request.
type EventPublisher interface {
	PublishTurnCompleted(ctx context.Context, event domain.TurnEvent) error
}

// TimesheetWriter renders time entries into a downloadable report file.
type TimesheetWriter interface {
	WriteTimesheet(staffName string, entries []domain.TimeEntry) (path string, err error)
}
