package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/ports"
)

const (
	fastPathConfidence    = 0.95
	greetingConfidence    = 0.98
	fallbackLowConfidence = 0.3
)

type patternRule struct {
	category   domain.Category
	confidence float64
	reasoning  string
	re         *regexp.Regexp
}

// Ordered: first match wins. Greeting and capability questions resolve to
// the catch-all category before any domain keyword gets a chance.
var fastPathRules = []patternRule{
	{
		category:   domain.CategoryGeneral,
		confidence: greetingConfidence,
		reasoning:  "greeting or capability question",
		re:         regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good (morning|afternoon|evening)|thanks|thank you)\b|what can you (do|help)`),
	},
	{
		category:   domain.CategoryAppointments,
		confidence: fastPathConfidence,
		reasoning:  "scheduling keywords matched",
		re:         regexp.MustCompile(`(?i)\b(book|schedule|reschedule|cancel)\b.*\b(meeting|appointment|call|time)\b|\bavailab(le|ility)\b|\bcalendar\b|\bfree slots?\b|\bbusy\b.*\b(today|tomorrow|monday|tuesday|wednesday|thursday|friday)\b`),
	},
	{
		category:   domain.CategoryBilling,
		confidence: fastPathConfidence,
		reasoning:  "billing keywords matched",
		re:         regexp.MustCompile(`(?i)\b(log|logged|track|record|bill|billed)\b.*\b(time|hours?)\b|\btimesheet\b|\bbillable\b|\btime entr(y|ies)\b|\binvoice\b`),
	},
}

// MoEClassifier maps a message to one of the fixed categories. The fast
// deterministic path runs first on every message with no network call; the
// LLM fallback is consulted only when no pattern matches, and any failure
// there degrades to a low-confidence catch-all result instead of blocking
// the request.
type MoEClassifier struct {
	model        ports.ChatModel
	historyTurns int
}

func NewMoEClassifier(model ports.ChatModel, historyTurns int) *MoEClassifier {
	if historyTurns <= 0 {
		historyTurns = 4
	}
	return &MoEClassifier{model: model, historyTurns: historyTurns}
}

func (c *MoEClassifier) Classify(ctx context.Context, message string, history []domain.ConversationMessage) domain.Classification {
	for _, rule := range fastPathRules {
		if rule.re.MatchString(message) {
			return domain.Classification{
				Category:   rule.category,
				Confidence: rule.confidence,
				Reasoning:  rule.reasoning,
			}
		}
	}
	return c.classifyWithModel(ctx, message, history)
}

func (c *MoEClassifier) classifyWithModel(ctx context.Context, message string, history []domain.ConversationMessage) domain.Classification {
	messages := []domain.ConversationMessage{
		{Role: domain.RoleSystem, Content: classificationPrompt()},
	}
	for _, msg := range recentTurns(history, c.historyTurns) {
		messages = append(messages, domain.ConversationMessage{
			Role:    msg.Role,
			Content: snippet(msg.Content, 120),
		})
	}
	messages = append(messages, domain.ConversationMessage{Role: domain.RoleUser, Content: message})

	turn, err := c.model.Chat(ctx, messages, nil)
	if err != nil {
		slog.Warn("classification_fallback", "error", err)
		return degradedClassification(fmt.Sprintf("classifier model call failed: %v", err))
	}
	return parseClassification(turn.Content)
}

func classificationPrompt() string {
	return fmt.Sprintf(`You classify a business user's message into exactly one category.

Categories:
- appointments: checking someone's calendar availability, booking, moving or cancelling meetings
- billing: logging billable time, timesheets, reviewing logged hours
- general: greetings, capability questions, anything else

Guidance: prefer appointments when the message mentions people's schedules
or meetings; prefer billing when it mentions hours worked or time entries.
If the message clearly contains BOTH a scheduling request and a billing
request, pick the one mentioned first and begin reasoning with "mixed-intent:".

Respond with ONLY a JSON object, no markdown, matching:
{"category":"appointments|billing|general","confidence":0.0,"reasoning":"short explanation"}

Valid categories: %s`, strings.Join(categoryNames(), ", "))
}

func categoryNames() []string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return names
}

// parseClassification is deliberately defensive: models wrap JSON in code
// fences, invent categories, and return confidence as strings. None of
// that may surface as an error.
func parseClassification(raw string) domain.Classification {
	cleaned := stripCodeFences(raw)
	cleaned = extractJSONObject(cleaned)

	var payload struct {
		Category   string      `json:"category"`
		Confidence interface{} `json:"confidence"`
		Reasoning  string      `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		slog.Warn("classification_parse_failed", "error", err, "raw", snippet(raw, 200))
		return degradedClassification(fmt.Sprintf("unparseable classifier response: %v", err))
	}

	category := domain.Category(strings.ToLower(strings.TrimSpace(payload.Category)))
	if !domain.IsValidCategory(category) {
		category = domain.CategoryGeneral
	}

	return domain.Classification{
		Category:   category,
		Confidence: clampConfidence(coerceConfidence(payload.Confidence)),
		Reasoning:  strings.TrimSpace(payload.Reasoning),
	}
}

func degradedClassification(reason string) domain.Classification {
	return domain.Classification{
		Category:   domain.CategoryGeneral,
		Confidence: fallbackLowConfidence,
		Reasoning:  reason,
	}
}

func coerceConfidence(value interface{}) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return fallbackLowConfidence
		}
		return parsed
	case nil:
		return fallbackLowConfidence
	default:
		return fallbackLowConfidence
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func recentTurns(history []domain.ConversationMessage, limit int) []domain.ConversationMessage {
	filtered := make([]domain.ConversationMessage, 0, limit)
	for _, msg := range history {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		filtered = append(filtered, msg)
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

func snippet(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
