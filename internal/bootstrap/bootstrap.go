package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborworks/concierge/internal/config"
	"github.com/harborworks/concierge/internal/core/domain"
	"github.com/harborworks/concierge/internal/core/ports"
	"github.com/harborworks/concierge/internal/core/usecase"
	"github.com/harborworks/concierge/internal/infrastructure/billing/ledger"
	"github.com/harborworks/concierge/internal/infrastructure/cache"
	"github.com/harborworks/concierge/internal/infrastructure/directory/graph"
	"github.com/harborworks/concierge/internal/infrastructure/llm/ollama"
	"github.com/harborworks/concierge/internal/infrastructure/queue/nats"
	"github.com/harborworks/concierge/internal/infrastructure/report"
	"github.com/harborworks/concierge/internal/infrastructure/repository/memory"
	"github.com/harborworks/concierge/internal/infrastructure/repository/postgres"
	"github.com/harborworks/concierge/internal/infrastructure/resilience"
	"github.com/harborworks/concierge/internal/observability/metrics"
)

const serviceName = "concierge-api"

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Chat       ports.ChatRouter
	Scheduling *usecase.SchedulingService

	// PruneSessions drops expired histories and reports how many were
	// removed; wired to either the memory store or the postgres repository.
	PruneSessions func(ctx context.Context) (int64, error)

	closeFn func()
}

// Close releases long-lived resources (broker connection, database pool).
// Safe to call on a partially built App.
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	m := metrics.NewHTTPServerMetrics(serviceName)
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	sessions, pruneSessions, closeSessions, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaChatModel)
	model := ollama.NewResilientModel(ollamaClient, executor)

	directory := graph.New(graph.Config{
		BaseURL:      cfg.DirectoryBaseURL,
		TokenURL:     cfg.DirectoryTokenURL,
		ClientID:     cfg.DirectoryClientID,
		ClientSecret: cfg.DirectoryClientSecret,
		Scope:        cfg.DirectoryScope,
	}, cache.SystemClock())

	ledgerClient := ledger.New(ledger.Config{
		BaseURL: cfg.LedgerBaseURL,
		APIKey:  cfg.LedgerAPIKey,
	})
	timesheets := report.NewTimesheetWriter(cfg.ReportOutputDir, nil)

	scheduling := usecase.NewSchedulingService(directory, nil)
	billing := usecase.NewBillingService(ledgerClient, timesheets, nil)

	publishers := []ports.EventPublisher{metrics.NewTurnRecorder(m, serviceName)}
	closeQueue := func() {}
	if cfg.NATSEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeSessions()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		publishers = append(publishers, queue)
		closeQueue = queue.Close
	}

	classifier := usecase.NewMoEClassifier(model, cfg.ClassifierHistoryTurns)
	factory := func(tag string) ports.ChatExpert {
		switch tag {
		case usecase.ExpertCalendar:
			return usecase.NewCalendarExpert(model, sessions, scheduling, cfg.ExpertHistoryMessages, nil)
		case usecase.ExpertBilling:
			return usecase.NewBillingExpert(model, sessions, billing, cfg.ExpertHistoryMessages, nil)
		default:
			return usecase.NewGeneralExpert(model, sessions, scheduling, billing, cfg.ExpertHistoryMessages, nil)
		}
	}

	router := usecase.NewMoERouter(classifier, sessions, fanoutPublisher(publishers), factory, usecase.RouterConfig{
		ConfidenceThreshold: cfg.RouterConfidenceThreshold,
		StreamChunkChars:    cfg.StreamChunkChars,
		HistoryLimit:        cfg.ExpertHistoryMessages,
	}, nil)

	return &App{
		Config:        cfg,
		Metrics:       m,
		Chat:          router,
		Scheduling:    scheduling,
		PruneSessions: pruneSessions,
		closeFn: func() {
			closeQueue()
			closeSessions()
		},
	}, nil
}

func buildSessionStore(ctx context.Context, cfg config.Config) (ports.SessionStore, func(ctx context.Context) (int64, error), func(), error) {
	ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute

	if cfg.SessionBackend == "postgres" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewSessionRepository(db, ttl, nil)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("ensure sessions schema: %w", err)
		}
		return repo, repo.Prune, func() { _ = db.Close() }, nil
	}

	store := memory.NewSessionStore(ttl, cache.SystemClock())
	prune := func(context.Context) (int64, error) {
		return int64(store.Prune(time.Now())), nil
	}
	return store, prune, func() {}, nil
}

// fanoutPublisher delivers each turn event to every sink; a failing sink
// is logged and skipped so audit fan-out stays best-effort.
type fanoutPublisher []ports.EventPublisher

func (f fanoutPublisher) PublishTurnCompleted(ctx context.Context, event domain.TurnEvent) error {
	for _, publisher := range f {
		if err := publisher.PublishTurnCompleted(ctx, event); err != nil {
			slog.Warn("turn_event_sink_failed", "session_id", event.SessionID, "error", err)
		}
	}
	return nil
}
