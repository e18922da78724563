package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborworks/concierge/internal/core/domain"
)

// Client talks to an Ollama server's /api/chat endpoint. It implements
// ports.ChatModel: tool definitions are translated to Ollama's function
// schema on every call, and tool calls in the response are given
// client-side IDs because the native API does not assign any.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (c *Client) Chat(ctx context.Context, messages []domain.ConversationMessage, tools []domain.ToolDefinition) (*domain.ChatTurn, error) {
	request := chatRequest{
		Model:    c.model,
		Messages: encodeMessages(messages),
		Tools:    encodeTools(tools),
		Stream:   false,
	}

	var response chatResponse
	if err := c.postJSON(ctx, "/api/chat", request, &response, "chat"); err != nil {
		return nil, err
	}

	turn := &domain.ChatTurn{Content: strings.TrimSpace(response.Message.Content)}
	for _, call := range response.Message.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, domain.ToolCall{
			ID:        uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: string(call.Function.Arguments),
		})
	}
	return turn, nil
}

func encodeMessages(messages []domain.ConversationMessage) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		encoded := chatMessage{Role: msg.Role, Content: msg.Content}
		for _, call := range msg.ToolCalls {
			encoded.ToolCalls = append(encoded.ToolCalls, chatToolCall{
				Function: chatFunctionCall{
					Name:      call.Name,
					Arguments: rawArguments(call.Arguments),
				},
			})
		}
		out = append(out, encoded)
	}
	return out
}

func rawArguments(args string) json.RawMessage {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

// encodeTools renders definitions as JSON-schema function declarations,
// the shape Ollama shares with the OpenAI tools API.
func encodeTools(tools []domain.ToolDefinition) []chatTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]chatTool, 0, len(tools))
	for _, def := range tools {
		properties := make(map[string]any, len(def.Parameters))
		required := make([]string, 0, len(def.Parameters))
		for name, param := range def.Parameters {
			properties[name] = map[string]any{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Required {
				required = append(required, name)
			}
		}
		out = append(out, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return out
}
