package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/triage/common/id"
	"basegraph.app/triage/common/llm"
	"basegraph.app/triage/common/logger"
	"basegraph.app/triage/common/otel"
	"basegraph.app/triage/core/config"
	"basegraph.app/triage/internal/brain"
	"basegraph.app/triage/internal/http/handler/webhook"
	"basegraph.app/triage/internal/http/middleware"
	httprouter "basegraph.app/triage/internal/http/router"
	"basegraph.app/triage/internal/mapper"
	"basegraph.app/triage/internal/service/issue_tracker"
	"basegraph.app/triage/internal/service/translator"
	"basegraph.app/triage/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v68/github"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "triage starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.Triage.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	githubClient, err := issue_tracker.NewGitHubClient(cfg.GitHub)
	if errors.Is(err, issue_tracker.ErrNotConfigured) && cfg.IsDevelopment() {
		slog.WarnContext(ctx, "github credentials missing, using an unauthenticated client")
		githubClient, err = github.NewClient(nil), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create github client", "error", err)
		os.Exit(1)
	}
	tracker := issue_tracker.NewGitHubTracker(githubClient)

	classifierClient, err := llm.NewAgentClient(llmConfig(cfg.ClassifierLLM))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create classifier client", "error", err)
		os.Exit(1)
	}
	translatorClient, err := llm.New(llmConfig(cfg.TranslatorLLM))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create translator client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm clients ready",
		"classifier_model", classifierClient.Model(),
		"translator_model", translatorClient.Model())

	orchestrator := brain.NewOrchestrator(
		brain.OrchestratorConfig{
			Decision: brain.DecisionConfig{
				SpamRepoNodeID: cfg.GitHub.SpamRepoNodeID,
				RuntimeLabel:   cfg.GitHub.RuntimeLabel,
			},
			Gather: brain.GatherOptions{
				IncludeComments:   true,
				MaxComments:       cfg.Triage.MaxComments,
				IncludeTimeline:   true,
				MaxTimelineEvents: cfg.Triage.MaxTimelineEvents,
			},
			ActionConcurrency: cfg.Triage.ActionConcurrency,
			Policy:            brain.DefaultFailurePolicy,
		},
		brain.NewClassifier(classifierClient, cfg.ClassifierLLM.MaxTokens),
		tracker,
		translator.New(translatorClient),
	)

	background := worker.New(worker.Config{TaskConcurrency: cfg.Triage.ActionConcurrency})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, webhook.NewGitHubWebhookHandler(
		webhook.GitHubWebhookConfig{
			Secret:        cfg.GitHub.WebhookSecret,
			AllowUnsigned: cfg.AllowUnsignedWebhooks(),
		},
		mapper.NewGitHubEventMapper(),
		orchestrator,
		background,
	))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(ctx, cfg.Triage.DrainTimeout)
	defer cancelDrain()
	if err := background.Drain(drainCtx); err != nil {
		slog.ErrorContext(drainCtx, "background drain incomplete", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:   c.Provider,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		MaxTokens:  c.MaxTokens,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
	}
}

func setupRouter(cfg config.Config, githubHandler *webhook.GitHubWebhookHandler) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, githubHandler)

	return router
}

const banner = `
████████╗██████╗ ██╗ █████╗  ██████╗ ███████╗
╚══██╔══╝██╔══██╗██║██╔══██╗██╔════╝ ██╔════╝
   ██║   ██████╔╝██║███████║██║  ███╗█████╗  
   ██║   ██╔══██╗██║██╔══██║██║   ██║██╔══╝  
   ██║   ██║  ██║██║██║  ██║╚██████╔╝███████╗
   ╚═╝   ╚═╝  ╚═╝╚═╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝
`
