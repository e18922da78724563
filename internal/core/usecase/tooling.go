package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/harborworks/concierge/internal/core/domain"
)

// ToolInvocation is the transient, parsed form of a model tool call. It is
// consumed immediately by the dispatcher; only the serialized result is
// persisted to history.
type ToolInvocation struct {
	Name   string
	CallID string
	Args   map[string]interface{}
}

func parseInvocation(call domain.ToolCall) (ToolInvocation, error) {
	args := map[string]interface{}{}
	raw := strings.TrimSpace(call.Arguments)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return ToolInvocation{}, fmt.Errorf("parse arguments for %s: %w", call.Name, err)
		}
	}
	return ToolInvocation{Name: call.Name, CallID: call.ID, Args: args}, nil
}

// ToolResult is implemented by one tagged variant per tool name. Internal
// code passes these typed values around; JSON serialization happens only at
// the provider boundary via encodeToolResult.
type ToolResult interface {
	ToolName() string
}

// ToolExecutor dispatches a single invocation to the owning service.
type ToolExecutor interface {
	Execute(ctx context.Context, inv ToolInvocation) (ToolResult, error)
}

type DirectoryListResult struct {
	Entries []domain.DirectoryEntry `json:"entries"`
}

func (DirectoryListResult) ToolName() string { return toolListDirectoryEntries }

type AvailabilityWindow struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Subject string `json:"subject,omitempty"`
}

type FreeWindow struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
}

type AvailabilityResult struct {
	Person    string               `json:"person"`
	Address   string               `json:"address"`
	Date      string               `json:"date"`
	Timezone  string               `json:"timezone"`
	Busy      []AvailabilityWindow `json:"busy"`
	FreeSlots []FreeWindow         `json:"free_slots"`
}

func (AvailabilityResult) ToolName() string { return toolCheckAvailability }

type BookingResult struct {
	Subject         string   `json:"subject"`
	Person          string   `json:"person"`
	Weekday         string   `json:"weekday"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	ConferencingURL string   `json:"conferencing_url,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`
}

func (BookingResult) ToolName() string { return toolBookMeeting }

type StaffListResult struct {
	Entries []domain.StaffEntry `json:"entries"`
}

func (StaffListResult) ToolName() string { return toolListStaff }

type TimeEntryResult struct {
	StaffName string           `json:"staff_name"`
	Entry     domain.TimeEntry `json:"entry"`
}

func (TimeEntryResult) ToolName() string { return toolLogTimeEntry }

type TimeEntriesResult struct {
	StaffName  string             `json:"staff_name"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	Entries    []domain.TimeEntry `json:"entries"`
	TotalHours float64            `json:"total_hours"`
}

func (TimeEntriesResult) ToolName() string { return toolListTimeEntries }

type TimesheetExportResult struct {
	StaffName string `json:"staff_name"`
	Path      string `json:"path"`
	Entries   int    `json:"entries"`
}

func (TimesheetExportResult) ToolName() string { return toolExportTimesheet }

func encodeToolResult(result ToolResult) string {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":"encode %s result: %v"}`, result.ToolName(), err)
	}
	return string(payload)
}

// encodeToolError builds the structured error payload reported back to the
// model so it can self-correct, annotated with a remediation hint keyed off
// the error kind.
func encodeToolError(toolName string, err error) string {
	payload := map[string]string{
		"tool":  toolName,
		"error": err.Error(),
	}
	switch {
	case domain.IsKind(err, domain.ErrPermission):
		payload["hint"] = "the connected account lacks permission for this operation; ask the user to re-authorize the integration"
	case domain.IsKind(err, domain.ErrUnauthorized):
		payload["hint"] = "the session with the downstream service is no longer valid; ask the user to sign in again"
	case domain.IsKind(err, domain.ErrNotFound):
		payload["hint"] = "verify the name or identifier with list tools before retrying"
	}
	encoded, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return fmt.Sprintf(`{"tool":%q,"error":"unserializable tool error"}`, toolName)
	}
	return string(encoded)
}

func stringArg(args map[string]interface{}, key string) string {
	if args == nil {
		return ""
	}
	value, ok := args[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func floatArg(args map[string]interface{}, key string) (float64, bool) {
	if args == nil {
		return 0, false
	}
	value, ok := args[key]
	if !ok || value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	if args == nil {
		return nil
	}
	value, ok := args[key]
	if !ok || value == nil {
		return nil
	}
	switch typed := value.(type) {
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		parts := strings.Split(typed, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
