package ports

import (
	"context"

	"github.com/harborworks/concierge/internal/core/domain"
)

// MessageClassifier maps a user message to one of the fixed categories.
type MessageClassifier interface {
	Classify(ctx context.Context, message string, history []domain.ConversationMessage) domain.Classification
}

// ChatExpert is a domain-specific conversational agent owning a fixed tool
// set and the tool-calling loop against the model provider.
type ChatExpert interface {
	Name() string
	Respond(ctx context.Context, sessionID, message string) (*domain.ExpertReply, error)
}

// ChatRouter is the inbound contract for the mixture-of-experts routing
// engine. HandleRequestStream emits a classification-metadata chunk first,
// then the selected expert's answer chunks.
type ChatRouter interface {
	ClassifyMessage(ctx context.Context, message, sessionID string) domain.Classification
	HandleRequestStream(ctx context.Context, message, sessionID string) <-chan string
	ClearSession(ctx context.Context, sessionID string) error
}
