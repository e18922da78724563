package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured request emitted by the model naming a function
// and the JSON arguments it wants executed.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ConversationMessage is one turn of a session history. Assistant messages
// carrying only tool calls have empty content; tool-role messages reference
// the invoking call through ToolCallID.
type ConversationMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

type Category string

const (
	CategoryAppointments Category = "appointments"
	CategoryBilling      Category = "billing"
	CategoryGeneral      Category = "general"
)

// Categories is the closed set the classifier may produce.
var Categories = []Category{CategoryAppointments, CategoryBilling, CategoryGeneral}

func IsValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// ToolParameter describes one argument of a tool.
type ToolParameter struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolDefinition is statically owned by an expert and re-sent on every
// provider call because providers are stateless per call.
type ToolDefinition struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ToolParameter `json:"parameters"`
}

// ChatTurn is one provider response: free text, tool calls, or both.
type ChatTurn struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ExpertReply is the terminal output of one expert tool-calling round trip.
type ExpertReply struct {
	Answer       string   `json:"answer"`
	ToolsInvoked []string `json:"tools_invoked,omitempty"`
}

// TurnEvent is the audit record published after every handled request.
type TurnEvent struct {
	SessionID    string    `json:"session_id"`
	Category     Category  `json:"category"`
	Confidence   float64   `json:"confidence"`
	Expert       string    `json:"expert"`
	ToolsInvoked []string  `json:"tools_invoked,omitempty"`
	DurationMS   float64   `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
