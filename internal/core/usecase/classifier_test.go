package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/harborworks/concierge/internal/core/domain"
)

type scriptedModel struct {
	turns    []*domain.ChatTurn
	errs     []error
	calls    int
	messages [][]domain.ConversationMessage
	tools    [][]domain.ToolDefinition
}

func (m *scriptedModel) Chat(_ context.Context, messages []domain.ConversationMessage, tools []domain.ToolDefinition) (*domain.ChatTurn, error) {
	idx := m.calls
	m.calls++
	m.messages = append(m.messages, messages)
	m.tools = append(m.tools, tools)

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.turns) {
		return m.turns[idx], nil
	}
	return &domain.ChatTurn{Content: ""}, nil
}

func TestClassifyFastPathSkipsModel(t *testing.T) {
	model := &scriptedModel{}
	classifier := NewMoEClassifier(model, 4)

	cases := []struct {
		message string
		want    domain.Category
	}{
		{"Can you book a meeting with Jordan tomorrow?", domain.CategoryAppointments},
		{"is anyone available on friday?", domain.CategoryAppointments},
		{"log 3 hours for the Acme project", domain.CategoryBilling},
		{"show me my timesheet", domain.CategoryBilling},
		{"hello there", domain.CategoryGeneral},
		{"what can you do?", domain.CategoryGeneral},
	}
	for _, tc := range cases {
		got := classifier.Classify(context.Background(), tc.message, nil)
		if got.Category != tc.want {
			t.Fatalf("Classify(%q) category = %s, want %s", tc.message, got.Category, tc.want)
		}
		if got.Confidence < 0.9 {
			t.Fatalf("Classify(%q) confidence = %v, want fast-path confidence", tc.message, got.Confidence)
		}
	}
	if model.calls != 0 {
		t.Fatalf("fast path must not call the model, got %d calls", model.calls)
	}
}

func TestClassifyGreetingWinsOverDomainKeywords(t *testing.T) {
	classifier := NewMoEClassifier(&scriptedModel{}, 4)
	got := classifier.Classify(context.Background(), "hi, can you help with my calendar?", nil)
	if got.Category != domain.CategoryGeneral {
		t.Fatalf("greeting must win, got %s", got.Category)
	}
}

func TestClassifyModelFallbackParsesFencedJSON(t *testing.T) {
	model := &scriptedModel{turns: []*domain.ChatTurn{
		{Content: "```json\n{\"category\":\"appointments\",\"confidence\":0.82,\"reasoning\":\"asks about a colleague's day\"}\n```"},
	}}
	classifier := NewMoEClassifier(model, 4)

	got := classifier.Classify(context.Background(), "how does Jordan's day look?", nil)
	if got.Category != domain.CategoryAppointments || got.Confidence != 0.82 {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}
	if len(model.tools[0]) != 0 {
		t.Fatalf("classifier call must disable tools")
	}
}

func TestClassifyClampsAndCoercesConfidence(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"category":"billing","confidence":1.7,"reasoning":"x"}`, 1},
		{`{"category":"billing","confidence":-0.2,"reasoning":"x"}`, 0},
		{`{"category":"billing","confidence":"0.6","reasoning":"x"}`, 0.6},
		{`{"category":"billing","confidence":"high","reasoning":"x"}`, fallbackLowConfidence},
	}
	for _, tc := range cases {
		got := parseClassification(tc.raw)
		if got.Confidence != tc.want {
			t.Fatalf("parseClassification(%q) confidence = %v, want %v", tc.raw, got.Confidence, tc.want)
		}
	}
}

func TestClassifyUnknownCategoryFallsBackToGeneral(t *testing.T) {
	got := parseClassification(`{"category":"gossip","confidence":0.9,"reasoning":"?"}`)
	if got.Category != domain.CategoryGeneral {
		t.Fatalf("unknown category must map to general, got %s", got.Category)
	}
}

func TestClassifyDegradesOnModelFailure(t *testing.T) {
	model := &scriptedModel{errs: []error{fmt.Errorf("connection refused")}}
	classifier := NewMoEClassifier(model, 4)

	got := classifier.Classify(context.Background(), "something unclassifiable", nil)
	if got.Category != domain.CategoryGeneral || got.Confidence != fallbackLowConfidence {
		t.Fatalf("expected degraded classification, got %+v", got)
	}
}

func TestClassifyDegradesOnUnparseableResponse(t *testing.T) {
	model := &scriptedModel{turns: []*domain.ChatTurn{{Content: "sorry, I cannot help with that"}}}
	classifier := NewMoEClassifier(model, 4)

	got := classifier.Classify(context.Background(), "something unclassifiable", nil)
	if got.Category != domain.CategoryGeneral || got.Confidence != fallbackLowConfidence {
		t.Fatalf("expected degraded classification, got %+v", got)
	}
}

func TestClassifyForwardsOnlyRecentConversationalHistory(t *testing.T) {
	model := &scriptedModel{turns: []*domain.ChatTurn{
		{Content: `{"category":"general","confidence":0.5,"reasoning":"x"}`},
	}}
	classifier := NewMoEClassifier(model, 2)

	history := []domain.ConversationMessage{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleTool, Content: `{"tool":"x"}`},
		{Role: domain.RoleAssistant, Content: "second"},
		{Role: domain.RoleUser, Content: "third"},
	}
	classifier.Classify(context.Background(), "something unclassifiable", history)

	sent := model.messages[0]
	// system + 2 history turns + current message
	if len(sent) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(sent), sent)
	}
	if sent[1].Content != "second" || sent[2].Content != "third" {
		t.Fatalf("expected trailing conversational turns, got %+v", sent[1:3])
	}
}
