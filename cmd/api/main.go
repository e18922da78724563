package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	httpadapter "github.com/harborworks/concierge/internal/adapters/http"
	mcpadapter "github.com/harborworks/concierge/internal/adapters/mcp"
	"github.com/harborworks/concierge/internal/bootstrap"
	"github.com/harborworks/concierge/internal/config"
	"github.com/harborworks/concierge/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("concierge-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Chat, app.Metrics, httpadapter.Config{
		Service:          "api",
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
		MaxConcurrent:    cfg.APIMaxConcurrent,
		BackpressureWait: time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SessionPruneCron, func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		dropped, err := app.PruneSessions(pruneCtx)
		if err != nil {
			slog.Warn("session_prune_failed", "error", err)
			return
		}
		app.Metrics.RecordSessionsPruned("api", int(dropped))
		if dropped > 0 {
			slog.Info("sessions_pruned", "count", dropped)
		}
	}); err != nil {
		log.Fatalf("schedule session pruning: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.MCPEnabled {
		mcpServer := mcpadapter.NewServer(app.Scheduling, "1.0.0")
		go func() {
			slog.Info("mcp listening", "addr", cfg.MCPAddr)
			if err := mcpServer.StartSSE(cfg.MCPAddr); err != nil {
				slog.Error("mcp server error", "error", err)
			}
		}()
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
