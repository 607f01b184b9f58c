package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v68/github"

	"basegraph.app/triage/common/logger"
	"basegraph.app/triage/internal/brain"
	"basegraph.app/triage/internal/domain"
	"basegraph.app/triage/internal/mapper"
	"basegraph.app/triage/internal/worker"
)

const (
	HeaderPassID      = "X-Triage-Pass-Id"
	HeaderFlow        = "X-Triage-Flow"
	HeaderActions     = "X-Triage-Actions"
	HeaderAnalysis    = "X-Triage-Analysis"
	HeaderRawResponse = "X-Triage-Raw-Response"

	maxRawResponseHeader = 1024
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event, tasks brain.BackgroundTasks) (*brain.PassReport, error)
}

type TaskSets interface {
	NewTaskSet(ctx context.Context, name string) (*worker.TaskSet, error)
}

type GitHubWebhookConfig struct {
	Secret string
	// AllowUnsigned accepts unverified deliveries when no secret is set.
	// A configured secret is always enforced. Local development only.
	AllowUnsigned bool
}

type GitHubWebhookHandler struct {
	cfg        GitHubWebhookConfig
	mapper     mapper.EventMapper
	dispatcher Dispatcher
	tasks      TaskSets
}

func NewGitHubWebhookHandler(cfg GitHubWebhookConfig, mapper mapper.EventMapper, dispatcher Dispatcher, tasks TaskSets) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		cfg:        cfg,
		mapper:     mapper,
		dispatcher: dispatcher,
		tasks:      tasks,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "triage.http.webhook"})
	deliveryID := github.DeliveryID(c.Request)
	eventType := github.WebHookType(c.Request)

	body, err := h.readPayload(c.Request)
	if err != nil {
		slog.WarnContext(ctx, "rejected webhook delivery", "github_event", eventType, "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	ev, err := h.mapper.Map(ctx, mapper.Delivery{ID: deliveryID, EventType: eventType, Payload: body})
	switch {
	case errors.Is(err, mapper.ErrUnsupportedEvent):
		slog.DebugContext(ctx, "ignoring github event", "github_event", eventType, "reason", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	case err != nil:
		slog.WarnContext(ctx, "malformed github payload", "github_event", eventType, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	set, err := h.tasks.NewTaskSet(ctx, string(ev.Type))
	if err != nil {
		slog.WarnContext(ctx, "refusing delivery", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		return
	}

	report, err := h.dispatcher.Dispatch(ctx, ev, set)
	set.Close()
	setDiagnosticHeaders(c, report)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "triage pass failed"})
		return
	}

	resp := gin.H{"status": "accepted"}
	if report != nil {
		resp["pass_id"] = strconv.FormatInt(report.PassID, 10)
		resp["flow"] = report.Flow
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GitHubWebhookHandler) readPayload(r *http.Request) ([]byte, error) {
	switch {
	case h.cfg.Secret != "":
		return github.ValidatePayload(r, []byte(h.cfg.Secret))
	case h.cfg.AllowUnsigned:
		return io.ReadAll(r.Body)
	default:
		return nil, errors.New("webhook secret not configured")
	}
}

// setDiagnosticHeaders summarizes the pass on the response. The headers are
// for humans and are never read back.
func setDiagnosticHeaders(c *gin.Context, report *brain.PassReport) {
	if report == nil {
		return
	}
	c.Header(HeaderPassID, strconv.FormatInt(report.PassID, 10))
	if report.Flow != "" {
		c.Header(HeaderFlow, string(report.Flow))
	}
	if data, err := json.Marshal(actionList(report)); err == nil {
		c.Header(HeaderActions, string(data))
	}
	if report.Analysis != nil {
		if data, err := json.Marshal(report.Analysis); err == nil {
			c.Header(HeaderAnalysis, string(data))
		}
	}
	if report.RawResponse != "" {
		c.Header(HeaderRawResponse, logger.Truncate(strings.Join(strings.Fields(report.RawResponse), " "), maxRawResponseHeader))
	}
}

func actionList(report *brain.PassReport) []string {
	names := make([]string, 0, len(report.Actions))
	for _, a := range report.Actions {
		names = append(names, a.String())
	}
	return names
}
