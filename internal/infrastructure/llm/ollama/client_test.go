package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harborworks/concierge/internal/core/domain"
)

func TestChatEncodesToolSchemaAndAssignsCallIDs(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"check_availability","arguments":{"person":"Jordan","date_phrase":"tomorrow"}}},
			{"function":{"name":"list_directory_entries","arguments":{}}}
		]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.1")
	turn, err := client.Chat(context.Background(),
		[]domain.ConversationMessage{{Role: domain.RoleUser, Content: "is Jordan free tomorrow?"}},
		[]domain.ToolDefinition{{
			Name:        "check_availability",
			Description: "Check free slots",
			Parameters: map[string]domain.ToolParameter{
				"person":      {Type: "string", Description: "who", Required: true},
				"date_phrase": {Type: "string", Description: "when", Required: true},
			},
		}},
	)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if len(captured.Tools) != 1 || captured.Tools[0].Type != "function" {
		t.Fatalf("unexpected tools payload: %+v", captured.Tools)
	}
	if captured.Tools[0].Function.Name != "check_availability" {
		t.Fatalf("unexpected tool name: %s", captured.Tools[0].Function.Name)
	}
	if captured.Stream {
		t.Fatalf("expected stream=false")
	}

	if len(turn.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(turn.ToolCalls))
	}
	if turn.ToolCalls[0].ID == "" || turn.ToolCalls[0].ID == turn.ToolCalls[1].ID {
		t.Fatalf("expected distinct generated call ids, got %q and %q", turn.ToolCalls[0].ID, turn.ToolCalls[1].ID)
	}
	if !strings.Contains(turn.ToolCalls[0].Arguments, "Jordan") {
		t.Fatalf("unexpected arguments: %s", turn.ToolCalls[0].Arguments)
	}
}

func TestChatRoundTripsToolCallMessages(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Jordan is free at 10:00."}}`))
	}))
	defer server.Close()

	client := New(server.URL, "llama3.1")
	turn, err := client.Chat(context.Background(), []domain.ConversationMessage{
		{Role: domain.RoleUser, Content: "is Jordan free tomorrow?"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "call-1", Name: "check_availability", Arguments: `{"person":"Jordan"}`}}},
		{Role: domain.RoleTool, Content: `{"tool":"check_availability","free_slots":[]}`, ToolCallID: "call-1"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(captured.Messages))
	}
	if len(captured.Messages[1].ToolCalls) != 1 {
		t.Fatalf("assistant tool calls not forwarded: %+v", captured.Messages[1])
	}
	if captured.Messages[2].Role != domain.RoleTool {
		t.Fatalf("expected tool role, got %s", captured.Messages[2].Role)
	}
	if captured.Tools != nil {
		t.Fatalf("expected no tools on follow-up call")
	}
	if turn.Content != "Jordan is free at 10:00." {
		t.Fatalf("unexpected content: %s", turn.Content)
	}
}

func TestChatIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "llama3.1")
	_, err := client.Chat(context.Background(), []domain.ConversationMessage{{Role: domain.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPStatusError with 502, got %v", err)
	}
}
