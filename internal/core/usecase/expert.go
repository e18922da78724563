package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/ports"
)

const followUpInstruction = "Answer the user directly from the tool results above. " +
	"Do not request more tools and do not narrate the lookup process; state the outcome plainly."

// Expert runs the multi-round tool-calling protocol for one domain: model
// call with tools, sequential tool execution with per-call error capture,
// then exactly one follow-up call with tool use disabled. Tool errors are
// recoverable by design; only provider-call errors fail the request.
type Expert struct {
	name         string
	model        ports.ChatModel
	sessions     ports.SessionStore
	executor     ToolExecutor
	tools        []domain.ToolDefinition
	systemPrompt func(now time.Time) string
	historyLimit int
	now          func() time.Time
}

type ExpertConfig struct {
	Name         string
	Model        ports.ChatModel
	Sessions     ports.SessionStore
	Executor     ToolExecutor
	Tools        []domain.ToolDefinition
	SystemPrompt func(now time.Time) string
	HistoryLimit int
	Now          func() time.Time
}

func NewExpert(cfg ExpertConfig) *Expert {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Expert{
		name:         cfg.Name,
		model:        cfg.Model,
		sessions:     cfg.Sessions,
		executor:     cfg.Executor,
		tools:        cfg.Tools,
		systemPrompt: cfg.SystemPrompt,
		historyLimit: cfg.HistoryLimit,
		now:          cfg.Now,
	}
}

func (e *Expert) Name() string { return e.name }

func (e *Expert) Respond(ctx context.Context, sessionID, message string) (*domain.ExpertReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "expert respond", fmt.Errorf("message is required"))
	}

	history := e.loadHistory(ctx, sessionID)
	userMsg := domain.ConversationMessage{
		Role:      domain.RoleUser,
		Content:   message,
		CreatedAt: e.now().UTC(),
	}

	prompt := []domain.ConversationMessage{
		{Role: domain.RoleSystem, Content: e.systemPrompt(e.now())},
	}
	prompt = append(prompt, history...)
	prompt = append(prompt, userMsg)

	turn, err := e.model.Chat(ctx, prompt, e.tools)
	if err != nil {
		// History up to this point is already persisted from earlier
		// turns; a provider failure is fatal to this request only.
		return nil, fmt.Errorf("expert %s model call: %w", e.name, err)
	}

	if len(turn.ToolCalls) == 0 {
		history = append(history, userMsg, e.assistantMessage(turn.Content, nil))
		e.persist(ctx, sessionID, history)
		return &domain.ExpertReply{Answer: turn.Content}, nil
	}

	assistantMsg := e.assistantMessage(turn.Content, turn.ToolCalls)
	toolMsgs, toolsInvoked := e.runToolCalls(ctx, turn.ToolCalls)

	followUp := append(prompt, assistantMsg)
	followUp = append(followUp, toolMsgs...)
	followUp = append(followUp, domain.ConversationMessage{
		Role:    domain.RoleSystem,
		Content: followUpInstruction,
	})

	finalTurn, err := e.model.Chat(ctx, followUp, nil)
	if err != nil {
		return nil, fmt.Errorf("expert %s follow-up model call: %w", e.name, err)
	}

	history = append(history, userMsg, assistantMsg)
	history = append(history, toolMsgs...)
	history = append(history, e.assistantMessage(finalTurn.Content, nil))
	e.persist(ctx, sessionID, history)

	return &domain.ExpertReply{Answer: finalTurn.Content, ToolsInvoked: toolsInvoked}, nil
}

// runToolCalls executes every requested call sequentially, in order. Each
// call is independently captured: one tool failure becomes a structured
// error result for that call only and never aborts its siblings.
func (e *Expert) runToolCalls(ctx context.Context, calls []domain.ToolCall) ([]domain.ConversationMessage, []string) {
	messages := make([]domain.ConversationMessage, 0, len(calls))
	invoked := make([]string, 0, len(calls))
	seen := make(map[string]struct{}, len(calls))

	for _, call := range calls {
		content := e.executeOne(ctx, call)
		messages = append(messages, domain.ConversationMessage{
			Role:       domain.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			CreatedAt:  e.now().UTC(),
		})
		if _, dup := seen[call.Name]; !dup {
			seen[call.Name] = struct{}{}
			invoked = append(invoked, call.Name)
		}
	}
	return messages, invoked
}

func (e *Expert) executeOne(ctx context.Context, call domain.ToolCall) string {
	inv, err := parseInvocation(call)
	if err != nil {
		slog.Warn("tool_call_invalid_arguments", "expert", e.name, "tool", call.Name, "error", err)
		return encodeToolError(call.Name, domain.WrapError(domain.ErrInvalidInput, "parse tool arguments", err))
	}

	result, err := e.executor.Execute(ctx, inv)
	if err != nil {
		slog.Warn("tool_call_failed", "expert", e.name, "tool", call.Name, "error", err)
		return encodeToolError(call.Name, err)
	}
	return encodeToolResult(result)
}

func (e *Expert) assistantMessage(content string, calls []domain.ToolCall) domain.ConversationMessage {
	return domain.ConversationMessage{
		Role:      domain.RoleAssistant,
		Content:   content,
		ToolCalls: calls,
		CreatedAt: e.now().UTC(),
	}
}

// loadHistory reads the persisted session; a store failure degrades to an
// empty history so the request still proceeds.
func (e *Expert) loadHistory(ctx context.Context, sessionID string) []domain.ConversationMessage {
	history, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.Warn("session_store_unavailable", "expert", e.name, "session_id", sessionID, "error", err)
		return nil
	}
	return trimHistory(history, e.historyLimit)
}

func (e *Expert) persist(ctx context.Context, sessionID string, history []domain.ConversationMessage) {
	if err := e.sessions.Put(ctx, sessionID, history); err != nil {
		slog.Warn("session_persist_failed", "expert", e.name, "session_id", sessionID, "error", err)
	}
}

// trimHistory keeps at most limit trailing messages, cutting only at a
// user-message boundary so tool-result messages never lose the assistant
// tool-call message they reference.
func trimHistory(history []domain.ConversationMessage, limit int) []domain.ConversationMessage {
	if len(history) <= limit {
		return history
	}
	start := len(history) - limit
	for start < len(history) && history[start].Role != domain.RoleUser {
		start++
	}
	return history[start:]
}
