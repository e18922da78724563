package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/ports"
)

const (
	classificationMarkerPrefix = "[CLASSIFICATION:"
	classificationMarkerSuffix = "]"

	genericErrorChunk = "I hit a problem while processing that request. Please try again."

	mixedIntentQuestion = "It sounds like you want to both schedule a meeting and log billable time. " +
		"Which should I do first?"

	classifierHistoryMessages = 6
)

var (
	schedulingHintRe = regexp.MustCompile(`(?i)\b(meeting|appointment|calendar|schedule|book|availab)`)
	billingHintRe    = regexp.MustCompile(`(?i)\b(billable|timesheet|invoice|log(ged)?\b.*hours?|hours?\b.*log)`)
)

// RouterConfig carries the routing knobs. ConfidenceThreshold is retained
// as a documented extension point: the current decision table resolves
// every branch on category before confidence is consulted, so the
// threshold only drives a debug log on the general-expert path.
type RouterConfig struct {
	ConfidenceThreshold float64
	StreamChunkChars    int
	HistoryLimit        int
}

// ExpertFactory lazily constructs the expert for a tag; the router caches
// one instance per tag for its own lifetime.
type ExpertFactory func(tag string) ports.ChatExpert

// MoERouter classifies each inbound message, selects the expert for its
// category and forwards the expert's streamed answer, injecting the
// classification metadata marker as the first chunk.
type MoERouter struct {
	classifier ports.MessageClassifier
	sessions   ports.SessionStore
	events     ports.EventPublisher
	factory    ExpertFactory
	cfg        RouterConfig
	now        func() time.Time

	mu      sync.Mutex
	experts map[string]ports.ChatExpert
	last    domain.Classification
}

func NewMoERouter(
	classifier ports.MessageClassifier,
	sessions ports.SessionStore,
	events ports.EventPublisher,
	factory ExpertFactory,
	cfg RouterConfig,
	now func() time.Time,
) *MoERouter {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	if cfg.StreamChunkChars <= 0 {
		cfg.StreamChunkChars = 120
	}
	if now == nil {
		now = time.Now
	}
	return &MoERouter{
		classifier: classifier,
		sessions:   sessions,
		events:     events,
		factory:    factory,
		cfg:        cfg,
		now:        now,
		experts:    make(map[string]ports.ChatExpert),
	}
}

// ClassifyMessage hydrates short recent history from the session store
// (best-effort) before delegating to the classifier.
func (r *MoERouter) ClassifyMessage(ctx context.Context, message, sessionID string) domain.Classification {
	var history []domain.ConversationMessage
	if sessionID != "" {
		stored, err := r.sessions.Get(ctx, sessionID)
		if err != nil {
			slog.Warn("classify_history_unavailable", "session_id", sessionID, "error", err)
		} else if len(stored) > classifierHistoryMessages {
			history = stored[len(stored)-classifierHistoryMessages:]
		} else {
			history = stored
		}
	}

	result := r.classifier.Classify(ctx, message, history)

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()
	return result
}

// LastClassification returns the most recent routing decision, kept for
// introspection only.
func (r *MoERouter) LastClassification() domain.Classification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// DetermineExpert maps a classification to an expert tag. Specialized
// categories route by category regardless of confidence; everything else
// lands on the general expert. Confidence is deliberately not a routing
// input today (see RouterConfig).
func (r *MoERouter) DetermineExpert(result domain.Classification) string {
	switch result.Category {
	case domain.CategoryAppointments:
		return ExpertCalendar
	case domain.CategoryBilling:
		return ExpertBilling
	default:
		if result.Confidence < r.cfg.ConfidenceThreshold {
			slog.Debug("low_confidence_general_route",
				"confidence", result.Confidence,
				"threshold", r.cfg.ConfidenceThreshold,
			)
		}
		return ExpertGeneral
	}
}

// HandleRequestStream runs the full routing pipeline. The channel always
// yields a well-formed stream: the classification marker first, then
// either the expert's answer chunks or a single terminal error chunk.
func (r *MoERouter) HandleRequestStream(ctx context.Context, message, sessionID string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		start := r.now()

		result := r.ClassifyMessage(ctx, message, sessionID)
		if !emit(ctx, out, classificationMarker(result)) {
			return
		}

		if r.isMixedIntent(result, message) {
			emit(ctx, out, mixedIntentQuestion)
			return
		}

		tag := r.DetermineExpert(result)
		expert := r.expertFor(tag)

		reply, err := expert.Respond(ctx, sessionID, message)
		if err != nil {
			slog.Error("expert_request_failed", "expert", tag, "session_id", sessionID, "error", err)
			emit(ctx, out, genericErrorChunk)
			return
		}

		for _, chunk := range splitByRunes(reply.Answer, r.cfg.StreamChunkChars) {
			if !emit(ctx, out, chunk) {
				return
			}
		}

		r.publishTurn(ctx, sessionID, result, tag, reply.ToolsInvoked, start)
	}()
	return out
}

func (r *MoERouter) ClearSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "clear session", fmt.Errorf("session id is required"))
	}
	return r.sessions.Delete(ctx, sessionID)
}

// isMixedIntent requires both the classifier's reasoning tag and an
// independent keyword confirmation on both domains before short-circuiting
// with a clarifying question.
func (r *MoERouter) isMixedIntent(result domain.Classification, message string) bool {
	if !strings.Contains(strings.ToLower(result.Reasoning), "mixed-intent") {
		return false
	}
	return schedulingHintRe.MatchString(message) && billingHintRe.MatchString(message)
}

func (r *MoERouter) expertFor(tag string) ports.ChatExpert {
	r.mu.Lock()
	defer r.mu.Unlock()
	if expert, ok := r.experts[tag]; ok {
		return expert
	}
	expert := r.factory(tag)
	r.experts[tag] = expert
	return expert
}

func (r *MoERouter) publishTurn(ctx context.Context, sessionID string, result domain.Classification, tag string, toolsInvoked []string, start time.Time) {
	if r.events == nil {
		return
	}
	event := domain.TurnEvent{
		SessionID:    sessionID,
		Category:     result.Category,
		Confidence:   result.Confidence,
		Expert:       tag,
		ToolsInvoked: toolsInvoked,
		DurationMS:   float64(r.now().Sub(start).Microseconds()) / 1000.0,
		CreatedAt:    r.now().UTC(),
	}
	if err := r.events.PublishTurnCompleted(ctx, event); err != nil {
		slog.Warn("turn_event_publish_failed", "session_id", sessionID, "error", err)
	}
}

func classificationMarker(result domain.Classification) string {
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"category":"general","confidence":0}`)
	}
	return classificationMarkerPrefix + string(payload) + classificationMarkerSuffix
}

func emit(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func splitByRunes(text string, chunkChars int) []string {
	if strings.TrimSpace(text) == "" {
		return []string{""}
	}
	if chunkChars <= 0 || utf8.RuneCountInString(text) <= chunkChars {
		return []string{text}
	}

	parts := make([]string, 0, utf8.RuneCountInString(text)/chunkChars+1)
	runes := []rune(text)
	for start := 0; start < len(runes); start += chunkChars {
		end := start + chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
